package utils

// Embed colors shared across commands and notifications.
const (
	SuccessColor = 0x57f287
	ErrorColor   = 0xed4245
	InfoColor    = 0x5865f2
	TradeColor   = 0x2b2d31
)
