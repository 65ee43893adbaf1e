package security

import (
	"errors"
	"strconv"
)

// ParseSteamID validates a 64-bit SteamID in its decimal form. Individual
// account ids start at 76561197960265728; anything below that is some
// other id type.
const minSteamID64 = 76561197960265728

func ParseSteamID(s string) (uint64, error) {
	if s == "" {
		return 0, errors.New("empty steam_id")
	}
	if len(s) != 17 {
		return 0, errors.New("steam_id must be 17 digits")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, errors.New("steam_id must be numeric")
		}
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.New("invalid steam_id")
	}
	if id < minSteamID64 {
		return 0, errors.New("steam_id out of individual account range")
	}
	return id, nil
}
