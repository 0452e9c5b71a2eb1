// Package geo splits scored geographic units into exposed and holdout groups
// and measures how widely each group is spread.
package geo

import (
	"math"
	"strings"
	"unicode"

	"github.com/sells-group/campaign-planner/internal/model"
)

// Diversity weights for numeric postal codes (e.g. US ZIP codes).
const (
	numericRegionPoints = 15.0 // per distinct leading digit
	numericRegionCap    = 35.0
	numericPrefixPoints = 2.0 // per distinct two-digit prefix
	numericPrefixCap    = 65.0
)

// Diversity weights for alphabetic area-prefix codes (e.g. UK postcodes).
const (
	alphaRegionPoints = 9.0 // per distinct broad region
	alphaRegionCap    = 50.0
	alphaAreaPoints   = 0.5 // per distinct area prefix
	alphaAreaCap      = 50.0
)

const maxDiversity = 100.0

// Buckets holds the two levels of geographic grouping for a code.
type Buckets struct {
	Region string // broad region: leading digit or first letter
	Area   string // finer grouping: two-digit prefix or letter area
}

// Classify returns the diversity buckets of a geo code under the given model.
// Rules:
//   - numeric: region = first digit, area = first two digits
//   - alpha: area = leading letters of the code, region = its first letter
//
// Codes that cannot be bucketed return ok=false.
func Classify(code string, m model.DiversityModel) (Buckets, bool) {
	code = model.NormalizeCode(code)
	if code == "" {
		return Buckets{}, false
	}
	switch m {
	case model.DiversityAlpha:
		area := leadingLetters(code)
		if area == "" {
			return Buckets{}, false
		}
		return Buckets{Region: area[:1], Area: area}, true
	default:
		if !unicode.IsDigit(rune(code[0])) {
			return Buckets{}, false
		}
		area := code[:1]
		if len(code) > 1 && unicode.IsDigit(rune(code[1])) {
			area = code[:2]
		}
		return Buckets{Region: code[:1], Area: area}, true
	}
}

// DetectModel picks a diversity model from the codes themselves: alpha when
// most codes start with a letter, numeric otherwise.
func DetectModel(codes []string) model.DiversityModel {
	var alpha, numeric int
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if unicode.IsLetter(rune(c[0])) {
			alpha++
		} else {
			numeric++
		}
	}
	if alpha > numeric {
		return model.DiversityAlpha
	}
	return model.DiversityNumeric
}

// Diversity scores the geographic spread of a set of units on 0-100.
// An empty set scores 0.
func Diversity(units []model.ScoredUnit, m model.DiversityModel) float64 {
	if len(units) == 0 {
		return 0
	}
	regions := make(map[string]struct{})
	areas := make(map[string]struct{})
	for _, u := range units {
		b, ok := Classify(u.Code, m)
		if !ok {
			continue
		}
		regions[b.Region] = struct{}{}
		areas[b.Area] = struct{}{}
	}

	var score float64
	switch m {
	case model.DiversityAlpha:
		score = math.Min(float64(len(regions))*alphaRegionPoints, alphaRegionCap) +
			math.Min(float64(len(areas))*alphaAreaPoints, alphaAreaCap)
	default:
		score = math.Min(float64(len(regions))*numericRegionPoints, numericRegionCap) +
			math.Min(float64(len(areas))*numericPrefixPoints, numericPrefixCap)
	}
	return math.Min(score, maxDiversity)
}

func leadingLetters(code string) string {
	end := 0
	for end < len(code) && code[end] < unicode.MaxASCII && unicode.IsLetter(rune(code[end])) {
		end++
	}
	return code[:end]
}
