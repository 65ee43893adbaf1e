package steam

import "fmt"

// CDN URL templates documented by Valve; derivable from the app id alone,
// no network round trip needed.

func GameIconURL(appID int64, iconHash string) string {
	if iconHash == "" {
		return ""
	}
	return fmt.Sprintf("https://media.steampowered.com/steamcommunity/public/images/apps/%d/%s.jpg", appID, iconHash)
}

func GameHeaderURL(appID int64) string {
	return fmt.Sprintf("https://cdn.cloudflare.steamstatic.com/steam/apps/%d/header.jpg", appID)
}

func GameLogoURL(appID int64) string {
	return fmt.Sprintf("https://cdn.cloudflare.steamstatic.com/steam/apps/%d/capsule_231x87.jpg", appID)
}
