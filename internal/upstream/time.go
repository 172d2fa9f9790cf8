package upstream

import "time"

// requestTimeLayout is the "YYYY-MM-DD HH:MM" UTC format the SDG API's
// from_date/to_date fields require (spec §6). UTC is assumed per spec §9's
// open question on timezone.
const requestTimeLayout = "2006-01-02 15:04"

func formatRequestTime(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format(requestTimeLayout)
}

func formatRequestTimeNow() string {
	return time.Now().UTC().Format(requestTimeLayout)
}
