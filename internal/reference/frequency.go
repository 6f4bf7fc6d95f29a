package reference

import (
	"strings"

	"github.com/catalog-harvester/pkg/harvest/models"
)

const (
	dublinCoreFrequencyNS = "purl.org/cld/freq/"
	euFrequencyNS         = "publications.europa.eu/resource/authority/frequency/"
)

// EU authority table codes that do not spell the label.
var euFrequencies = map[string]models.Frequency{
	"ANNUAL":       models.FrequencyAnnual,
	"ANNUAL_2":     models.FrequencySemiannual,
	"ANNUAL_3":     models.FrequencyThreeTimesAYear,
	"BIENNIAL":     models.FrequencyBiennial,
	"BIMONTHLY":    models.FrequencyBimonthly,
	"BIWEEKLY":     models.FrequencyBiweekly,
	"CONT":         models.FrequencyContinuous,
	"UPDATE_CONT":  models.FrequencyContinuous,
	"DAILY":        models.FrequencyDaily,
	"DAILY_2":      models.FrequencySemidaily,
	"HOURLY":       models.FrequencyHourly,
	"IRREG":        models.FrequencyIrregular,
	"MONTHLY":      models.FrequencyMonthly,
	"MONTHLY_2":    models.FrequencySemimonthly,
	"MONTHLY_3":    models.FrequencyThreeTimesAMonth,
	"NEVER":        models.FrequencyPunctual,
	"QUARTERLY":    models.FrequencyQuarterly,
	"QUINQUENNIAL": models.FrequencyQuinquennial,
	"TRIENNIAL":    models.FrequencyTriennial,
	"UNKNOWN":      models.FrequencyUnknown,
	"WEEKLY":       models.FrequencyWeekly,
	"WEEKLY_2":     models.FrequencySemiweekly,
	"WEEKLY_3":     models.FrequencyThreeTimesAWeek,
}

// Vocabulary resolves update frequencies from labels and linked data URIs.
type Vocabulary struct {
	labels map[string]models.Frequency
}

// NewVocabulary returns the controlled frequency vocabulary.
func NewVocabulary() *Vocabulary {
	labels := make(map[string]models.Frequency, len(models.Frequencies))
	for _, f := range models.Frequencies {
		labels[string(f)] = f
	}
	return &Vocabulary{labels: labels}
}

// Lookup accepts only exact vocabulary labels.
func (v *Vocabulary) Lookup(label string) (models.Frequency, bool) {
	f, ok := v.labels[label]
	return f, ok
}

// FromURI resolves a Dublin Core or EU authority frequency URI.
func (v *Vocabulary) FromURI(value string) (models.Frequency, bool) {
	rest, ok := strings.CutPrefix(value, "http://")
	if !ok {
		if rest, ok = strings.CutPrefix(value, "https://"); !ok {
			return "", false
		}
	}
	rest = strings.TrimSuffix(rest, "/")

	if name, ok := strings.CutPrefix(rest, dublinCoreFrequencyNS); ok {
		return v.Lookup(name)
	}
	if code, ok := strings.CutPrefix(rest, euFrequencyNS); ok {
		f, ok := euFrequencies[code]
		return f, ok
	}
	return "", false
}
