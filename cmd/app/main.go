package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"time"

	"github.com/hubertat/servicemaker"

	"github.com/hubertat/buskit"
	"github.com/hubertat/buskit/drivers/bme280"
)

const defaultSyncInterval = "10s"

var (
	Version string
	Build   string

	config       = flag.String("config", "config.json", "path of the configuration file")
	flagInstall  = flag.Bool("install", false, "Install service in os")
	syncInterval = flag.String("sync", defaultSyncInterval, "sensors sync interval (time.Duration)")

	busService = servicemaker.ServiceMaker{
		User:               "buskit",
		UserGroups:         []string{"gpio", "spi", "i2c"},
		ServicePath:        "/etc/systemd/system/buskit.service",
		ServiceDescription: "BusKit service: HomeKit enabled multiplexed sensor bus controller. github.com/hubertat/buskit",
		ExecDir:            "/srv/buskit",
		ExecName:           "buskit",
	}
)

func main() {
	log.Printf("buskit %s started\n", Version)
	flag.Parse()

	if *flagInstall {
		err := busService.InstallService()
		if err != nil {
			panic(err)
		} else {
			log.Println("service installed!")
			return
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	syncDuration, err := time.ParseDuration(*syncInterval)
	if err != nil {
		panic(err)
	}

	kit := &buskit.BusKit{}
	configFile, err := os.Open(*config)
	if err == nil {
		cBuff, err := io.ReadAll(configFile)
		if err != nil {
			log.Fatalf("failed reading config file: %v\n", err)
		}

		err = json.Unmarshal(cBuff, kit)
		if err != nil {
			log.Fatalf("failed unmarshalling json config: %v", err)
		}
	} else {
		log.Fatalf("can't find/open config file (%s), will terminate. Reason: \n%v\n", *config, err)
	}

	if kit.Bus != nil {
		kit.Bus.NewChip = bme280.New
	}

	log.Println("will init buskit drivers...")
	err = kit.InitDrivers()
	defer kit.Close()
	if err != nil {
		panic(err)
	}

	if len(kit.MqttBroker) > 0 {
		log.Println("will connect to mqtt broker...")
		err = kit.InitMqtt(ctx)
		if err != nil {
			log.Printf("Mqtt init returned error: %v\n we will proceed...", err)
		}
	}

	if len(kit.StatusAddr) > 0 {
		go func() {
			log.Printf("status api stopped: %v\n", kit.ServeStatus())
		}()
	}

	if len(kit.HkPin) == 8 {
		log.Println("Starting with HomeKit server")

		go kit.StartTicker(syncDuration)
		log.Fatal(kit.StartHomeKit(context.Background(), Version))
	} else {
		log.Println("HomeKit not configured, disabled")
		kit.StartTicker(syncDuration)
	}

}
