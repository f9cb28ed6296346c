package mmio

// BeagleBone header positions translated to global GPIO numbers.
const (
	USR0 Pin = 53
	USR1 Pin = 54
	USR2 Pin = 55
	USR3 Pin = 56

	P9_11 Pin = 30
	P9_12 Pin = 60
	P9_13 Pin = 31
	P9_14 Pin = 50
	P9_15 Pin = 48
	P9_16 Pin = 51
	P9_17 Pin = 5
	P9_18 Pin = 4
	P9_19 Pin = 13
	P9_20 Pin = 12
	P9_21 Pin = 3
	P9_22 Pin = 2
	P9_23 Pin = 49
	P9_24 Pin = 15
	P9_25 Pin = 117
	P9_26 Pin = 14
	P9_27 Pin = 115
	P9_28 Pin = 113
	P9_29 Pin = 111
	P9_30 Pin = 112
	P9_31 Pin = 110
	P9_41 Pin = 20
	P9_42 Pin = 7

	P8_3  Pin = 38
	P8_4  Pin = 39
	P8_5  Pin = 34
	P8_6  Pin = 35
	P8_7  Pin = 66
	P8_8  Pin = 67
	P8_9  Pin = 69
	P8_10 Pin = 68
	P8_11 Pin = 45
	P8_12 Pin = 44
	P8_13 Pin = 23
	P8_14 Pin = 26
	P8_15 Pin = 47
	P8_16 Pin = 46
	P8_17 Pin = 27
	P8_18 Pin = 65
	P8_19 Pin = 22
	P8_20 Pin = 63
	P8_21 Pin = 62
	P8_22 Pin = 37
	P8_23 Pin = 36
	P8_24 Pin = 33
	P8_25 Pin = 32
	P8_26 Pin = 61
	P8_27 Pin = 86
	P8_28 Pin = 88
	P8_29 Pin = 87
	P8_30 Pin = 89
	P8_31 Pin = 10
	P8_32 Pin = 11
	P8_33 Pin = 9
	P8_34 Pin = 81
	P8_35 Pin = 8
	P8_36 Pin = 80
	P8_37 Pin = 78
	P8_38 Pin = 79
	P8_39 Pin = 76
	P8_40 Pin = 77
	P8_41 Pin = 74
	P8_42 Pin = 75
	P8_43 Pin = 72
	P8_44 Pin = 73
	P8_45 Pin = 70
	P8_46 Pin = 71
)
