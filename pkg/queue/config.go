package queue

import "time"

// MaxRefLen is the longest reference string accepted by Push.
const MaxRefLen = 50

// Config holds the recognized queue options.
type Config struct {
	// Table names the backing table. The value is used verbatim in SQL,
	// so the caller is responsible for a valid identifier.
	Table string

	// MaxRetries is the claim-attempt budget minus one: a row survives
	// MaxRetries+1 claims before ConsumeOne prunes it.
	MaxRetries int

	// Timeout is how long a claim may stay unfinalized before it is
	// released back to the queue.
	Timeout time.Duration

	// LookAhead is the candidate scan window per consumption call. Size
	// it at least as large as the expected number of concurrent
	// consumers, otherwise false-empty results become frequent under
	// contention.
	LookAhead int
}

func (c Config) withDefaults() Config {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.LookAhead < 1 {
		c.LookAhead = 1
	}
	return c
}
