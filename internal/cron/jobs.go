package cron

import "time"

// Loop names. Each loop holds its own lock.
const (
	LoopExpiry     = "expiry"
	LoopSettlement = "settlement"
)

func utcNow() time.Time { return time.Now().UTC() }
