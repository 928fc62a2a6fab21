package collect

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// SocialEntry is one generated social post, before storage.
type SocialEntry struct {
	URL       string
	Title     string
	Topic     string
	Location  string
	Username  string
	Urgency   string
	Retweets  int64
	Likes     int64
	Followers int64
}

// topicProfile shapes the generated chatter for one topic: how often it
// comes up, how urgent it reads, and what the posts say.
type topicProfile struct {
	name      string
	weight    int
	urgencies []string
	templates []string
}

var locations = []string{"Colombo", "Kandy", "Galle", "Jaffna", "Negombo", "Matara"}

var usernames = []string{
	"lka_updates", "colombo_watch", "island_report", "citizen_lk",
	"daily_commuter", "news_junkie_sl", "kandy_local", "southern_voice",
}

var topicProfiles = []topicProfile{
	{
		name: "fuel prices", weight: 5,
		urgencies: []string{"medium", "high", "high", "critical"},
		templates: []string{
			"fuel shortage near %s again, queue goes around the block",
			"petrol price hike announced, this crisis is getting worse",
			"diesel scarce in %s, stations turning people away",
		},
	},
	{
		name: "power cut", weight: 4,
		urgencies: []string{"medium", "medium", "high"},
		templates: []string{
			"power cut in %s for the third evening running",
			"load shedding schedule extended again, outage until late",
		},
	},
	{
		name: "flood warning", weight: 2,
		urgencies: []string{"high", "high", "critical"},
		templates: []string{
			"flood warning issued for low lying areas near %s",
			"river rising fast after heavy rain, evacuate warning in %s",
		},
	},
	{
		name: "protest", weight: 2,
		urgencies: []string{"medium", "high"},
		templates: []string{
			"protest gathering near %s, roads blocked",
			"strike action announced, unrest spreading in %s",
		},
	},
	{
		name: "inflation", weight: 3,
		urgencies: []string{"low", "medium", "medium"},
		templates: []string{
			"price increase on essentials again, inflation biting hard",
			"cost of living unbearable in %s, shortage of basics",
		},
	},
	{
		name: "rupee exchange rate", weight: 2,
		urgencies: []string{"low", "medium"},
		templates: []string{
			"rupee decline continues against the dollar",
			"exchange rate pressure hitting importers in %s",
		},
	},
	{
		name: "road conditions", weight: 2,
		urgencies: []string{"low", "medium"},
		templates: []string{
			"accident on the %s road, traffic blocked both ways",
			"road damage near %s still not repaired",
		},
	},
	{
		name: "public transport", weight: 2,
		urgencies: []string{"low", "medium"},
		templates: []string{
			"train delay again on the %s line, platforms packed",
			"bus strike rumours, commute from %s a struggle",
		},
	},
	{
		name: "water shortage", weight: 1,
		urgencies: []string{"medium", "high"},
		templates: []string{
			"water cut in %s since morning, no notice given",
		},
	},
	{
		name: "tourism boost", weight: 2,
		urgencies: []string{"low"},
		templates: []string{
			"record crowds in %s this season, tourism boost is real",
			"hotels full in %s, great recovery for the coast",
		},
	},
	{
		name: "cricket match", weight: 3,
		urgencies: []string{"low"},
		templates: []string{
			"what a win at the %s grounds, celebration everywhere",
			"big match day in %s, city buzzing",
		},
	},
}

// SocialFeed generates simulated social chatter. A fixed seed makes a
// run reproducible; seed zero falls back to the clock.
type SocialFeed struct {
	rng *rand.Rand
	seq int64
}

// NewSocialFeed creates a generator.
func NewSocialFeed(seed int64) *SocialFeed {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SocialFeed{rng: rand.New(rand.NewSource(seed))}
}

// Generate produces n posts timestamped at now. URLs embed the
// timestamp and a sequence number so re-runs in the same second
// deduplicate instead of double-counting.
func (sf *SocialFeed) Generate(n int, now time.Time) []SocialEntry {
	entries := make([]SocialEntry, 0, n)
	for i := 0; i < n; i++ {
		p := sf.pickTopic()
		loc := locations[sf.rng.Intn(len(locations))]
		title := p.templates[sf.rng.Intn(len(p.templates))]
		if strings.Contains(title, "%s") {
			title = fmt.Sprintf(title, loc)
		}

		sf.seq++
		entries = append(entries, SocialEntry{
			URL:       fmt.Sprintf("https://social.simulated/%s/%d-%d", slug(p.name), now.Unix(), sf.seq),
			Title:     title,
			Topic:     p.name,
			Location:  loc,
			Username:  usernames[sf.rng.Intn(len(usernames))],
			Urgency:   p.urgencies[sf.rng.Intn(len(p.urgencies))],
			Retweets:  int64(sf.rng.Intn(25)),
			Likes:     int64(sf.rng.Intn(80)),
			Followers: int64(50 + sf.rng.Intn(5000)),
		})
	}
	return entries
}

func (sf *SocialFeed) pickTopic() topicProfile {
	total := 0
	for _, p := range topicProfiles {
		total += p.weight
	}
	n := sf.rng.Intn(total)
	for _, p := range topicProfiles {
		n -= p.weight
		if n < 0 {
			return p
		}
	}
	return topicProfiles[0]
}

func slug(topic string) string {
	return strings.ReplaceAll(topic, " ", "-")
}
