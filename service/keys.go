package service

// AOSP input keycodes understood by "input keyevent". Only the subset a
// remote-holder can press on a Fire TV is mapped here.
const (
	KeyHome       = 3
	KeyBack       = 4
	KeyUp         = 19
	KeyDown       = 20
	KeyLeft       = 21
	KeyRight      = 22
	KeyCenter     = 23
	KeyVolumeUp   = 24
	KeyVolumeDown = 25
	KeyPower      = 26
	KeyEnter      = 66
	KeyMenu       = 82
	KeyPlayPause  = 85
	KeyNext       = 87
	KeyPrevious   = 88
	KeyPlay       = 126
	KeyPause      = 127
	KeySleep      = 223
)
