// Package insight aggregates signals into business-facing, severity-ranked
// recommendations with a validity window.
package insight

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Mitheesha/situational-awareness/internal/anomaly"
	"github.com/Mitheesha/situational-awareness/internal/database"
)

// ErrNoSupportingSignal is an invariant violation: every insight must
// reference at least one signal.
var ErrNoSupportingSignal = errors.New("insight has no supporting signal")

// Insight types and their validity windows.
const (
	TypeOperationalRisk      = "operational_risk"
	TypeSituationalAwareness = "situational_awareness"
	TypeEconomicPressure     = "economic_pressure"
	TypeInfrastructureStress = "infrastructure_stress"
)

var validityTTL = map[string]time.Duration{
	TypeOperationalRisk:      48 * time.Hour,
	TypeSituationalAwareness: 24 * time.Hour,
	TypeEconomicPressure:     7 * 24 * time.Hour,
	TypeInfrastructureStress: 3 * 24 * time.Hour,
}

// severityTable maps (anomaly tier, peak signal urgency) to insight
// severity. Topics without a scored anomaly use the LOW row.
var severityTable = map[anomaly.Tier]map[string]string{
	anomaly.TierLow: {
		"low": "low", "medium": "low", "high": "medium", "critical": "high",
	},
	anomaly.TierMedium: {
		"low": "low", "medium": "medium", "high": "high", "critical": "high",
	},
	anomaly.TierHigh: {
		"low": "medium", "medium": "high", "high": "high", "critical": "critical",
	},
}

// Evidence is the per-topic audit trail attached to generated insights.
type Evidence struct {
	Vector  database.FeatureVector
	Anomaly anomaly.Result
}

// Generator turns a cycle's signals into persisted insights.
type Generator struct {
	db *database.DB
}

func NewGenerator(db *database.DB) *Generator {
	return &Generator{db: db}
}

// Generate builds one insight per signal-bearing topic plus cross-topic
// insights, and persists them. evidence is keyed by topic.
func (g *Generator) Generate(signals []database.Signal, evidence map[string]Evidence, now time.Time) ([]database.Insight, error) {
	byTopic := make(map[string][]database.Signal)
	var topics []string
	for _, sig := range signals {
		if _, seen := byTopic[sig.Topic]; !seen {
			topics = append(topics, sig.Topic)
		}
		byTopic[sig.Topic] = append(byTopic[sig.Topic], sig)
	}
	sort.Strings(topics)

	var insights []database.Insight
	for _, topic := range topics {
		ins, err := g.buildTopicInsight(topic, byTopic[topic], evidence[topic], now)
		if err != nil {
			return insights, err
		}
		insights = append(insights, *ins)
	}

	insights = append(insights, crossTopicInsights(signals, now)...)

	for i := range insights {
		id, err := g.db.InsertInsight(&insights[i])
		if err != nil {
			return insights, fmt.Errorf("persisting insight %q: %w", insights[i].Title, err)
		}
		insights[i].ID = id
	}

	return insights, nil
}

func (g *Generator) buildTopicInsight(topic string, sigs []database.Signal, ev Evidence, now time.Time) (*database.Insight, error) {
	if len(sigs) == 0 {
		return nil, fmt.Errorf("%w: topic %q", ErrNoSupportingSignal, topic)
	}

	peak := peakUrgency(sigs)
	severity := Severity(ev.Anomaly.Tier, peak)

	insightType := TypeSituationalAwareness
	if peak == "high" || peak == "critical" {
		insightType = TypeOperationalRisk
	}

	var title, description string
	if insightType == TypeOperationalRisk {
		title = "Operational Risk: " + titleCase(topic)
		description = fmt.Sprintf(
			"Detected %d signal(s) indicating %s requires attention. This may impact business operations in the near term.",
			len(sigs), topic)
	} else {
		var mentions int64
		for _, s := range sigs {
			mentions += s.SourceCount
		}
		title = "Public Attention: " + titleCase(topic)
		description = fmt.Sprintf(
			"%s mentioned %d times across sources. Monitor for potential business implications.",
			titleCase(topic), mentions)
	}

	return &database.Insight{
		InsightType:    insightType,
		Title:          title,
		Description:    description,
		Severity:       severity,
		AffectedAreas:  affectedAreas(sigs),
		Recommendation: recommendation(insightType, topic),
		SupportingData: supportingData(sigs, ev),
		ValidUntil:     database.FormatTime(now.Add(validityTTL[insightType])),
	}, nil
}

// Severity resolves the documented tier-by-urgency lookup. Unknown inputs
// degrade to the safest cell that still surfaces the insight.
func Severity(tier anomaly.Tier, urgency string) string {
	row, ok := severityTable[tier]
	if !ok {
		row = severityTable[anomaly.TierLow]
	}
	if sev, ok := row[urgency]; ok {
		return sev
	}
	return "low"
}

var urgencyRank = map[string]int{"low": 1, "medium": 2, "high": 3, "critical": 4}

func peakUrgency(sigs []database.Signal) string {
	peak := "low"
	for _, s := range sigs {
		if urgencyRank[s.Urgency] > urgencyRank[peak] {
			peak = s.Urgency
		}
	}
	return peak
}

// affectedAreas collects the distinct locations attached to the signals'
// metadata. Signals loaded back from the store carry the list as []any.
func affectedAreas(sigs []database.Signal) []string {
	seen := map[string]struct{}{}
	var areas []string
	add := func(loc string) {
		if loc == "" {
			return
		}
		if _, dup := seen[loc]; !dup {
			seen[loc] = struct{}{}
			areas = append(areas, loc)
		}
	}
	for _, s := range sigs {
		switch locs := s.Metadata["locations"].(type) {
		case []string:
			for _, loc := range locs {
				add(loc)
			}
		case []any:
			for _, v := range locs {
				if loc, ok := v.(string); ok {
					add(loc)
				}
			}
		}
	}
	if len(areas) == 0 {
		return []string{"National"}
	}
	sort.Strings(areas)
	return areas
}

// supportingData snapshots the evidence behind an insight: contributing
// signal ids, the raw feature values, and the anomaly verdict.
func supportingData(sigs []database.Signal, ev Evidence) map[string]any {
	ids := make([]any, len(sigs))
	var confSum float64
	for i, s := range sigs {
		ids[i] = s.ID
		confSum += s.ConfidenceScore
	}

	features := map[string]any{}
	values := ev.Vector.Values()
	for i, name := range database.FeatureNames {
		features[name] = values[i]
	}

	data := map[string]any{
		"signal_ids": ids,
		"features":   features,
		"confidence": confSum / float64(len(sigs)),
	}
	if ev.Anomaly.Status == anomaly.StatusScored {
		data["anomaly_score"] = ev.Anomaly.Score
		data["anomaly_tier"] = string(ev.Anomaly.Tier)
	}
	return data
}

var economicTopics = map[string]bool{
	"fuel prices":         true,
	"inflation":           true,
	"rupee exchange rate": true,
}

var infrastructureTopics = map[string]bool{
	"power cut":        true,
	"road conditions":  true,
	"public transport": true,
	"water shortage":   true,
}

// crossTopicInsights looks for co-occurring pressure across related
// topics that no single-topic insight captures.
func crossTopicInsights(signals []database.Signal, now time.Time) []database.Insight {
	var economic, infra []database.Signal
	for _, s := range signals {
		if economicTopics[s.Topic] {
			economic = append(economic, s)
		}
		if infrastructureTopics[s.Topic] {
			infra = append(infra, s)
		}
	}

	var insights []database.Insight
	if len(economic) >= 2 {
		insights = append(insights, database.Insight{
			InsightType: TypeEconomicPressure,
			Title:       "Economic Pressure Indicators",
			Description: fmt.Sprintf(
				"Multiple economic indicators showing activity: %s. Suggests broader economic challenges.",
				topicList(economic)),
			Severity:      "medium",
			AffectedAreas: []string{"National"},
			Recommendation: "Review pricing strategies, cost management, and cash flow projections. " +
				"Consider hedging against currency fluctuations if applicable.",
			SupportingData: crossSupportingData(economic),
			ValidUntil:     database.FormatTime(now.Add(validityTTL[TypeEconomicPressure])),
		})
	}
	if len(infra) >= 2 {
		insights = append(insights, database.Insight{
			InsightType: TypeInfrastructureStress,
			Title:       "Infrastructure Challenges Detected",
			Description: fmt.Sprintf(
				"Multiple infrastructure issues reported: %s. May affect operations and logistics.",
				topicList(infra)),
			Severity:      "medium",
			AffectedAreas: []string{"National"},
			Recommendation: "Prepare contingency plans for operational disruptions. " +
				"Consider alternative work arrangements and delivery schedules.",
			SupportingData: crossSupportingData(infra),
			ValidUntil:     database.FormatTime(now.Add(validityTTL[TypeInfrastructureStress])),
		})
	}
	return insights
}

func crossSupportingData(sigs []database.Signal) map[string]any {
	ids := make([]any, len(sigs))
	for i, s := range sigs {
		ids[i] = s.ID
	}
	return map[string]any{"signal_ids": ids, "topics": topicList(sigs)}
}

func topicList(sigs []database.Signal) string {
	seen := map[string]struct{}{}
	var topics []string
	for _, s := range sigs {
		if _, dup := seen[s.Topic]; !dup {
			seen[s.Topic] = struct{}{}
			topics = append(topics, s.Topic)
		}
	}
	sort.Strings(topics)
	return strings.Join(topics, ", ")
}

var recommendations = map[string]map[string]string{
	TypeOperationalRisk: {
		"fuel prices":   "Monitor fuel procurement costs and adjust delivery schedules. Consider advance purchases if trend continues.",
		"power cut":     "Prepare backup power systems. Adjust operational hours to minimize impact on critical processes.",
		"flood warning": "Secure ground-floor inventory. Review supply chain routes for weather-related disruptions.",
		"protest":       "Monitor locations for potential transport delays. Consider remote work options for affected areas.",
	},
}

func recommendation(insightType, topic string) string {
	if byTopic, ok := recommendations[insightType]; ok {
		if rec, ok := byTopic[topic]; ok {
			return rec
		}
	}
	switch insightType {
	case TypeOperationalRisk:
		return fmt.Sprintf("Monitor %s closely. Assess potential impact on operations and prepare mitigation strategies.", topic)
	case TypeSituationalAwareness:
		return fmt.Sprintf("Continue monitoring %s. No immediate action required.", topic)
	}
	return fmt.Sprintf("Monitor %s and assess business implications.", topic)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
