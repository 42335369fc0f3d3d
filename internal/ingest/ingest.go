// Package ingest consumes staged follower CSV files. A staged file is the
// drop-in data source for a tracked account and is deleted once its rows
// are parsed, so each drop is consumed at most once.
package ingest

import (
	"encoding/csv"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"followerwatch/internal/models"
)

// timeNow is swappable in tests.
var timeNow = time.Now

const createdAtDefaultLayout = "2006-01-02 15:04:05"

// columnSpec binds an expected CSV header to the follower field it fills
// and the default applied when the header is missing from the file.
type columnSpec struct {
	header string
	assign func(f *models.Follower, value string, present bool)
}

func optionalText(dst func(f *models.Follower) **string) func(*models.Follower, string, bool) {
	return func(f *models.Follower, value string, present bool) {
		if present {
			v := value
			*dst(f) = &v
		}
	}
}

var expectedColumns = []columnSpec{
	{"User ID", optionalText(func(f *models.Follower) **string { return &f.UserID })},
	{"Name", optionalText(func(f *models.Follower) **string { return &f.Name })},
	{"Username", func(f *models.Follower, value string, present bool) {
		if present {
			f.Username = value
		}
	}},
	{"Bio", optionalText(func(f *models.Follower) **string { return &f.Bio })},
	{"Profile URL", optionalText(func(f *models.Follower) **string { return &f.ProfileURL })},
	{"Follower Count", func(f *models.Follower, value string, present bool) {
		if !present {
			return
		}
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return
		}
		f.FollowersCount = n
	}},
	{"Created At", func(f *models.Follower, value string, present bool) {
		if present {
			f.CreatedAt = value
		}
	}},
	{"Blue Verified", func(f *models.Follower, value string, present bool) {
		if !present {
			return
		}
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "yes":
			f.BlueVerified = true
		}
	}},
	{"Location", optionalText(func(f *models.Follower) **string { return &f.Location })},
}

// Fetch reads the staged CSV at csvPath and returns its rows normalized to
// follower records. A missing file or an unparseable file yields no rows
// and no error; the file is deleted only after every row has been decoded.
func Fetch(csvPath string, account string) []models.Follower {
	file, err := os.Open(csvPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Warning: no CSV found for %s", account)
		} else {
			log.Printf("Error opening CSV for %s: %v", account, err)
		}
		return nil
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	file.Close()
	if err != nil {
		log.Printf("Error processing CSV for %s: %v", account, err)
		return nil
	}
	if len(records) == 0 {
		log.Printf("Error processing CSV for %s: empty file", account)
		return nil
	}

	headerIndex := make(map[string]int, len(records[0]))
	for i, header := range records[0] {
		headerIndex[strings.TrimSpace(header)] = i
	}

	followers := make([]models.Follower, 0, len(records)-1)
	for _, record := range records[1:] {
		f := models.Follower{
			CreatedAt: timeNow().Format(createdAtDefaultLayout),
		}
		for _, col := range expectedColumns {
			idx, present := headerIndex[col.header]
			value := ""
			if present && idx < len(record) {
				value = record[idx]
			} else {
				present = false
			}
			col.assign(&f, value, present)
		}
		followers = append(followers, f)
	}

	if err := os.Remove(csvPath); err != nil {
		log.Printf("Error deleting processed CSV for %s: %v", account, err)
	} else {
		log.Printf("CSV for %s processed and deleted", account)
	}
	return followers
}
