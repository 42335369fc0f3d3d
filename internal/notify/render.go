package notify

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"followerwatch/internal/models"
)

// twitterCreatedAtLayout is the timestamp format Twitter exports use.
const twitterCreatedAtLayout = "Mon Jan 02 15:04:05 -0700 2006"

// stagedCreatedAtLayout matches the default the ingestor substitutes when
// the CSV has no creation-date column.
const stagedCreatedAtLayout = "2006-01-02 15:04:05"

var (
	handleRe    = regexp.MustCompile(`@(\w+)`)
	shortLinkRe = regexp.MustCompile(`https?://(?:t\.co|t\.me)/[^\s]+`)
)

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

// linkifyHandles turns standalone @handle tokens into Twitter profile
// links. A token preceded by a word character or another @, or followed by
// a dot, is left alone so emails and domain-like strings stay plain text.
func linkifyHandles(bio string) string {
	matches := handleRe.FindAllStringSubmatchIndex(bio, -1)
	if matches == nil {
		return bio
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if start < last {
			continue
		}
		if start > 0 {
			prev := bio[start-1]
			if isWordByte(prev) || prev == '@' {
				continue
			}
		}
		if end < len(bio) && bio[end] == '.' {
			continue
		}
		handle := bio[m[2]:m[3]]
		b.WriteString(bio[last:start])
		fmt.Fprintf(&b, `<a href="https://twitter.com/%s">@%s</a>`, handle, handle)
		last = end
	}
	b.WriteString(bio[last:])
	return b.String()
}

// linkifyShortURLs collapses t.co and t.me URLs into a generic link label.
func linkifyShortURLs(bio string) string {
	return shortLinkRe.ReplaceAllStringFunc(bio, func(url string) string {
		return fmt.Sprintf(`<a href="%s">🔗Links</a>`, url)
	})
}

func parseCreatedAt(raw string) time.Time {
	if t, err := time.Parse(twitterCreatedAtLayout, raw); err == nil {
		return t
	}
	if t, err := time.Parse(stagedCreatedAtLayout, raw); err == nil {
		return t
	}
	return timeNow()
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return " - "
	}
	return *s
}

// RenderAlert formats the rich-text alert for one new follower of a
// tracked account.
func RenderAlert(account string, f models.Follower) string {
	createdAt := parseCreatedAt(f.CreatedAt)
	// Floor, not truncate: a timestamp a few hours ahead of the clock
	// counts as -1 days ago, not 0.
	daysAgo := int(math.Floor(timeNow().In(createdAt.Location()).Sub(createdAt).Hours() / 24))

	profileURL := fmt.Sprintf("https://twitter.com/%s", f.Username)
	if f.ProfileURL != nil && *f.ProfileURL != "" {
		profileURL = *f.ProfileURL
	}

	bio := orDash(f.Bio)
	bio = linkifyHandles(bio)
	bio = linkifyShortURLs(bio)

	verified := "No"
	if f.BlueVerified {
		verified = "Yes"
	}

	return fmt.Sprintf(
		"🚨 NEW FOLLOWING ALERT : \n\n"+
			"<a href='%s'>@%s</a> ← is followed by <a href='https://twitter.com/%s'>@%s</a>\n\n"+
			"Details of %s:\n\n"+
			"•🗒 Bio: \"%s\"\n\n"+
			"•📍 Location: %s\n\n"+
			"•👥 Followers: %d\n\n"+
			"•📅 Account created: %s (%d days ago)\n\n"+
			"•✅ Verified: %s",
		profileURL, f.Username, account, account,
		orDash(f.Name),
		bio,
		orDash(f.Location),
		f.FollowersCount,
		createdAt.Format("02-01-2006"), daysAgo,
		verified,
	)
}
