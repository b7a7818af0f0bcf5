package common

const (
	RequestIDHeader = "X-Request-Id"
	ElapsedHeader   = "X-Moderation-Elapsed-Ms"
)
