package acoustic

import "math"

// ModelWidth is the number of columns in the classifier's training schema.
const ModelWidth = 28

// FeatureNames is the training column order of the voice-recording dataset the
// classifier was fitted on.
var FeatureNames = [ModelWidth]string{
	"subject_id",
	"jitter_local",
	"jitter_local_abs",
	"jitter_rap",
	"jitter_ppq5",
	"jitter_ddp",
	"shimmer_local",
	"shimmer_local_db",
	"shimmer_apq3",
	"shimmer_apq5",
	"shimmer_apq11",
	"shimmer_dda",
	"ac",
	"nth",
	"htn",
	"median_pitch",
	"mean_pitch",
	"pitch_std",
	"min_pitch",
	"max_pitch",
	"num_pulses",
	"num_periods",
	"mean_period",
	"period_std",
	"unvoiced_fraction",
	"num_voice_breaks",
	"voice_break_degree",
	"updrs",
}

// Derivation constants. Each maps a live measurement onto the units of the
// corresponding training column.
const (
	// absolute jitter in seconds for a ~6ms glottal period
	jitterAbsPerPercent = 6e-5
	jitterRAPRatio      = 0.5
	jitterPPQ5Ratio     = 0.55

	// DDP is three times RAP by definition
	jitterDDPRatio = 3.0

	// 20*log10(1.01): dB shimmer per percent of local shimmer
	shimmerDBPerPercent = 0.0864
	shimmerAPQ3Ratio    = 0.5
	shimmerAPQ5Ratio    = 0.6
	shimmerAPQ11Ratio   = 0.8
	shimmerDDARatio     = 3.0

	pitchRangeStdDevs = 2.0

	pulsesPerSyllable        = 30.0
	unvoicedPercentPerRatio  = 100.0
	voiceBreaksPerRatio      = 10.0
	voiceBreakDegreePerRatio = 60.0
)

// Imputation holds the global training means used for the two columns that
// cannot be derived from live audio.
type Imputation struct {
	SubjectID float64 `json:"subject_id"`
	UPDRS     float64 `json:"updrs"`
}

// DefaultImputation is used when no model artifact supplies its own means.
var DefaultImputation = Imputation{SubjectID: 20.5, UPDRS: 13.0}

// ModelVector is the ordered numeric input to the classifier.
type ModelVector struct {
	Names  []string
	Values []float64
}

// Len returns the number of columns in the vector.
func (m ModelVector) Len() int { return len(m.Values) }

// Mapper translates live measurements into the classifier's training schema.
type Mapper struct {
	imputation Imputation
}

// NewMapper creates a mapper that fills the non-derivable columns with imp.
func NewMapper(imp Imputation) *Mapper {
	return &Mapper{imputation: imp}
}

// Map never fails. Missing measurements are already 0 in a sanitized vector.
func (m *Mapper) Map(f FeatureVector) ModelVector {
	jitter := f.JitterPercent
	shimmer := f.ShimmerPercent
	pitch := f.MeanPitchHz
	std := f.PitchStdHz
	hnr := f.HarmonicsToNoise

	rap := jitter * jitterRAPRatio
	apq3 := shimmer * shimmerAPQ3Ratio
	pulses := f.SpeechRate * pulsesPerSyllable

	var meanPeriod, periodStd float64
	if pitch > 0 {
		meanPeriod = 1 / pitch
		periodStd = std / (pitch * pitch)
	}

	values := [ModelWidth]float64{
		m.imputation.SubjectID,
		jitter,
		jitter * jitterAbsPerPercent,
		rap,
		jitter * jitterPPQ5Ratio,
		rap * jitterDDPRatio,
		shimmer,
		shimmer * shimmerDBPerPercent,
		apq3,
		shimmer * shimmerAPQ5Ratio,
		shimmer * shimmerAPQ11Ratio,
		apq3 * shimmerDDARatio,
		f.PitchStability,
		noiseToHarmonics(hnr),
		hnr,
		pitch,
		pitch,
		std,
		math.Max(0, pitch-pitchRangeStdDevs*std),
		pitch + pitchRangeStdDevs*std,
		pulses,
		math.Max(0, pulses-1),
		meanPeriod,
		periodStd,
		f.PauseRatio * unvoicedPercentPerRatio,
		math.Round(f.PauseRatio * voiceBreaksPerRatio),
		f.PauseRatio * voiceBreakDegreePerRatio,
		m.imputation.UPDRS,
	}

	names := make([]string, ModelWidth)
	copy(names, FeatureNames[:])
	out := make([]float64, ModelWidth)
	copy(out, values[:])

	return ModelVector{Names: names, Values: out}
}

func noiseToHarmonics(hnr float64) float64 {
	if hnr <= 0 {
		return 0
	}
	return math.Min(1, 1/hnr)
}
