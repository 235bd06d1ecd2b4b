package session

import "time"

// Record is one live refresh session: the refresh token's jti and the moment it was stored.
type Record struct {
	JTI       string
	CreatedAt time.Time
}

func recordFromScore(jti string, score float64) Record {
	return Record{JTI: jti, CreatedAt: time.UnixMicro(int64(score)).UTC()}
}
