// Package share builds the "share my tree" targets shown next to the
// profile link.
package share

import (
	"net/url"
	"strings"
)

// Message is the text sent along with the profile URL.
const Message = "Check out my links!"

type Target struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ProfileURL joins the public base URL and a username.
func ProfileURL(baseURL, username string) string {
	return strings.TrimRight(baseURL, "/") + "/" + url.PathEscape(username)
}

// Targets returns the share links for profileURL in display order.
func Targets(profileURL string) []Target {
	return []Target{
		{Name: "Twitter", URL: "https://twitter.com/intent/tweet?" + url.Values{
			"text": {Message},
			"url":  {profileURL},
		}.Encode()},
		{Name: "Facebook", URL: "https://www.facebook.com/sharer/sharer.php?" + url.Values{
			"u": {profileURL},
		}.Encode()},
		{Name: "LinkedIn", URL: "https://www.linkedin.com/sharing/share-offsite/?" + url.Values{
			"url": {profileURL},
		}.Encode()},
		{Name: "WhatsApp", URL: "https://wa.me/?" + url.Values{
			"text": {Message + " " + profileURL},
		}.Encode()},
		{Name: "Telegram", URL: "https://t.me/share/url?" + url.Values{
			"text": {Message},
			"url":  {profileURL},
		}.Encode()},
	}
}
