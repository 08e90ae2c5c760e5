// File: utils/constants.go
package utils

import "time"

// SessionStatePrefix is the prefix used for Redis conversation state keys.
const SessionStatePrefix = "chat:state:"

// SummaryTaskUniqueness keeps at most one pending summarization per session in this window.
const SummaryTaskUniqueness = time.Minute

// RequestLoggerKey is the gin context key for the request-scoped zap logger.
const RequestLoggerKey = "logger"

// QueueHealthInterval is how often the worker pings the queue database.
const QueueHealthInterval = 10 * time.Second
