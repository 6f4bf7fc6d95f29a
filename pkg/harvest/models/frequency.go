package models

// Frequency is an update frequency label from the controlled vocabulary.
type Frequency string

const (
	FrequencyPunctual         Frequency = "punctual"
	FrequencyContinuous       Frequency = "continuous"
	FrequencyHourly           Frequency = "hourly"
	FrequencyFourTimesADay    Frequency = "fourTimesADay"
	FrequencyThreeTimesADay   Frequency = "threeTimesADay"
	FrequencySemidaily        Frequency = "semidaily"
	FrequencyDaily            Frequency = "daily"
	FrequencyFourTimesAWeek   Frequency = "fourTimesAWeek"
	FrequencyThreeTimesAWeek  Frequency = "threeTimesAWeek"
	FrequencySemiweekly       Frequency = "semiweekly"
	FrequencyWeekly           Frequency = "weekly"
	FrequencyBiweekly         Frequency = "biweekly"
	FrequencyThreeTimesAMonth Frequency = "threeTimesAMonth"
	FrequencySemimonthly      Frequency = "semimonthly"
	FrequencyMonthly          Frequency = "monthly"
	FrequencyBimonthly        Frequency = "bimonthly"
	FrequencyQuarterly        Frequency = "quarterly"
	FrequencyThreeTimesAYear  Frequency = "threeTimesAYear"
	FrequencySemiannual       Frequency = "semiannual"
	FrequencyAnnual           Frequency = "annual"
	FrequencyBiennial         Frequency = "biennial"
	FrequencyTriennial        Frequency = "triennial"
	FrequencyQuinquennial     Frequency = "quinquennial"
	FrequencyIrregular        Frequency = "irregular"
	FrequencyUnknown          Frequency = "unknown"
)

// Frequencies lists the whole vocabulary in its canonical order.
var Frequencies = []Frequency{
	FrequencyPunctual,
	FrequencyContinuous,
	FrequencyHourly,
	FrequencyFourTimesADay,
	FrequencyThreeTimesADay,
	FrequencySemidaily,
	FrequencyDaily,
	FrequencyFourTimesAWeek,
	FrequencyThreeTimesAWeek,
	FrequencySemiweekly,
	FrequencyWeekly,
	FrequencyBiweekly,
	FrequencyThreeTimesAMonth,
	FrequencySemimonthly,
	FrequencyMonthly,
	FrequencyBimonthly,
	FrequencyQuarterly,
	FrequencyThreeTimesAYear,
	FrequencySemiannual,
	FrequencyAnnual,
	FrequencyBiennial,
	FrequencyTriennial,
	FrequencyQuinquennial,
	FrequencyIrregular,
	FrequencyUnknown,
}
