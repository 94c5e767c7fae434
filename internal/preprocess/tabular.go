package preprocess

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	apperrors "go-model-inference/internal/errors"
	"go-model-inference/internal/model"
)

// Stroke form field names, in training column order
const (
	FieldGender          = "gender"
	FieldAge             = "age"
	FieldHypertension    = "hypertension"
	FieldHeartDisease    = "heart_disease"
	FieldEverMarried     = "ever_married"
	FieldWorkType        = "work_type"
	FieldResidenceType   = "Residence_type"
	FieldAvgGlucoseLevel = "avg_glucose_level"
	FieldBMI             = "bmi"
	FieldSmokingStatus   = "smoking_status"
)

// StrokeFields lists every field in training column order
var StrokeFields = []string{
	FieldGender, FieldAge, FieldHypertension, FieldHeartDisease, FieldEverMarried,
	FieldWorkType, FieldResidenceType, FieldAvgGlucoseLevel, FieldBMI, FieldSmokingStatus,
}

// Smoking status values with risk meaning
const (
	SmokingNever    = "never smoked"
	SmokingFormerly = "formerly smoked"
	SmokingCurrent  = "smokes"
)

// StrokeInput holds the raw request fields; nil means the field was absent
type StrokeInput struct {
	Gender          *string
	Age             *float64
	Hypertension    *int
	HeartDisease    *int
	EverMarried     *string
	WorkType        *string
	ResidenceType   *string
	AvgGlucoseLevel *float64
	BMI             *float64
	SmokingStatus   *string
}

// StrokeRecord is a fully defaulted single-row input
type StrokeRecord struct {
	Gender          string
	Age             float64
	Hypertension    int
	HeartDisease    int
	EverMarried     string
	WorkType        string
	ResidenceType   string
	AvgGlucoseLevel float64
	BMI             float64
	SmokingStatus   string
}

// Column is one named cell of a record
type Column struct {
	Name        string
	Numeric     float64
	Categorical string
	IsNumeric   bool
}

// WithDefaults substitutes the documented default for every missing field.
// Empty strings count as missing.
func (in StrokeInput) WithDefaults() StrokeRecord {
	return StrokeRecord{
		Gender:          stringOr(in.Gender, "Male"),
		Age:             floatOr(in.Age, 0),
		Hypertension:    intOr(in.Hypertension, 0),
		HeartDisease:    intOr(in.HeartDisease, 0),
		EverMarried:     stringOr(in.EverMarried, "No"),
		WorkType:        stringOr(in.WorkType, "Private"),
		ResidenceType:   stringOr(in.ResidenceType, "Urban"),
		AvgGlucoseLevel: floatOr(in.AvgGlucoseLevel, 0),
		BMI:             floatOr(in.BMI, 0),
		SmokingStatus:   stringOr(in.SmokingStatus, SmokingNever),
	}
}

// Columns returns the record in training column order
func (r StrokeRecord) Columns() []Column {
	return []Column{
		{Name: FieldGender, Categorical: r.Gender},
		{Name: FieldAge, Numeric: r.Age, IsNumeric: true},
		{Name: FieldHypertension, Numeric: float64(r.Hypertension), IsNumeric: true},
		{Name: FieldHeartDisease, Numeric: float64(r.HeartDisease), IsNumeric: true},
		{Name: FieldEverMarried, Categorical: r.EverMarried},
		{Name: FieldWorkType, Categorical: r.WorkType},
		{Name: FieldResidenceType, Categorical: r.ResidenceType},
		{Name: FieldAvgGlucoseLevel, Numeric: r.AvgGlucoseLevel, IsNumeric: true},
		{Name: FieldBMI, Numeric: r.BMI, IsNumeric: true},
		{Name: FieldSmokingStatus, Categorical: r.SmokingStatus},
	}
}

// EncodeStroke builds the model feature row: numeric columns (standardized
// when the metadata carries a scaler) followed by one-hot columns named
// "<column>_<value>".
func EncodeStroke(r StrokeRecord, meta model.Metadata) (model.Tensor, error) {
	numeric := make(map[string]float64)
	categorical := make(map[string]string)
	for _, col := range r.Columns() {
		if col.IsNumeric {
			numeric[col.Name] = col.Numeric
		} else {
			categorical[col.Name] = col.Categorical
		}
	}

	row := make([]float32, 0, len(meta.NumericCols)+len(meta.EncodedCols))
	for i, name := range meta.NumericCols {
		v, ok := numeric[name]
		if !ok {
			return model.Tensor{}, fmt.Errorf("unknown numeric column %q", name)
		}
		if meta.Scaler != nil {
			scale := meta.Scaler.Scale[i]
			if scale == 0 {
				scale = 1
			}
			v = (v - meta.Scaler.Mean[i]) / scale
		}
		row = append(row, float32(v))
	}

	for _, name := range meta.EncodedCols {
		source, value, ok := splitEncoded(name, categorical)
		if !ok {
			return model.Tensor{}, fmt.Errorf("encoded column %q matches no categorical field", name)
		}
		var hot float32
		if categorical[source] == value {
			hot = 1
		}
		row = append(row, hot)
	}

	return model.Tensor{Shape: []int64{1, int64(len(row))}, Data: row}, nil
}

// splitEncoded maps "work_type_Self-employed" to ("work_type", "Self-employed")
func splitEncoded(name string, categorical map[string]string) (string, string, bool) {
	best := ""
	for field := range categorical {
		prefix := field + "_"
		if strings.HasPrefix(name, prefix) && len(field) > len(best) {
			best = field
		}
	}
	if best == "" {
		return "", "", false
	}
	return best, name[len(best)+1:], true
}

// ParseStrokeForm reads the stroke fields through lookup. Values that do not
// parse are reported as InputErrors and left absent so they get defaulted.
func ParseStrokeForm(lookup func(string) (string, bool)) (StrokeInput, []error) {
	var in StrokeInput
	var problems []error

	text := func(field string) *string {
		v, ok := lookup(field)
		if !ok {
			return nil
		}
		v = strings.TrimSpace(v)
		return &v
	}
	number := func(field string) *float64 {
		v, ok := lookup(field)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			problems = append(problems, apperrors.NewInputError(fmt.Sprintf("field %s is not a number", field), err))
			return nil
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			problems = append(problems, apperrors.NewInputError(fmt.Sprintf("field %s is not finite", field), nil))
			return nil
		}
		return &f
	}
	flag := func(field string) *int {
		f := number(field)
		if f == nil {
			return nil
		}
		if *f != math.Trunc(*f) || math.Abs(*f) > math.MaxInt32 {
			problems = append(problems, apperrors.NewInputError(fmt.Sprintf("field %s is not an integer", field), nil))
			return nil
		}
		i := int(*f)
		return &i
	}

	in.Gender = text(FieldGender)
	in.Age = number(FieldAge)
	in.Hypertension = flag(FieldHypertension)
	in.HeartDisease = flag(FieldHeartDisease)
	in.EverMarried = text(FieldEverMarried)
	in.WorkType = text(FieldWorkType)
	in.ResidenceType = text(FieldResidenceType)
	in.AvgGlucoseLevel = number(FieldAvgGlucoseLevel)
	in.BMI = number(FieldBMI)
	in.SmokingStatus = text(FieldSmokingStatus)

	return in, problems
}

func stringOr(v *string, def string) string {
	if v == nil || *v == "" {
		return def
	}
	return *v
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
