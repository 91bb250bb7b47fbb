package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Tokyo")
	if err != nil {
		panic(err)
	}
}

// SHOWROOM is a JST service, so every wall-clock decision (cycle
// timestamps, reports shown to the operator) is pinned to Asia/Tokyo no
// matter where the daemon happens to be deployed.
func Now() time.Time {
	return time.Now().In(Location)
}
