package normalize

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/wxrouter/wxrouter/internal/models"
)

// paramKind is the coercion rule applied to an allow-listed parameters key.
type paramKind int

const (
	// kindString takes the first array element (or stringifies a scalar).
	kindString paramKind = iota
	// kindText joins array elements with newlines.
	kindText
	// kindNumeric parses the first element as a float; unparsable is nil.
	kindNumeric
	// kindVerbatim stores the value as raw JSON.
	kindVerbatim
)

// paramRule binds one allow-listed key to its coercion and target field.
type paramRule struct {
	key    string
	kind   paramKind
	assign func(p *models.ParamValues, s *string, n *float64, raw json.RawMessage)
}

// paramRules is the static allow-list of projected parameters keys. Keys
// not listed here survive only inside the retained raw parameters blob.
var paramRules = []paramRule{
	{"AWIPSidentifier", kindString, func(p *models.ParamValues, s *string, _ *float64, _ json.RawMessage) { p.AWIPSIdentifier = s }},
	{"WMOidentifier", kindString, func(p *models.ParamValues, s *string, _ *float64, _ json.RawMessage) { p.WMOIdentifier = s }},
	{"NWSheadline", kindText, func(p *models.ParamValues, s *string, _ *float64, _ json.RawMessage) { p.NWSHeadline = s }},
	{"EAS-ORG", kindString, func(p *models.ParamValues, s *string, _ *float64, _ json.RawMessage) { p.EASOrg = s }},
	{"VTEC", kindText, func(p *models.ParamValues, s *string, _ *float64, _ json.RawMessage) { p.VTEC = s }},
	{"eventEndingTime", kindString, func(p *models.ParamValues, s *string, _ *float64, _ json.RawMessage) { p.EventEndingTime = s }},
	{"eventMotionDescription", kindString, func(p *models.ParamValues, s *string, _ *float64, _ json.RawMessage) { p.EventMotionDescription = s }},
	{"maxWindGust", kindNumeric, func(p *models.ParamValues, _ *string, n *float64, _ json.RawMessage) { p.MaxWindGust = n }},
	{"maxHailSize", kindNumeric, func(p *models.ParamValues, _ *string, n *float64, _ json.RawMessage) { p.MaxHailSize = n }},
	{"hailThreat", kindString, func(p *models.ParamValues, s *string, _ *float64, _ json.RawMessage) { p.HailThreat = s }},
	{"windThreat", kindString, func(p *models.ParamValues, s *string, _ *float64, _ json.RawMessage) { p.WindThreat = s }},
	{"tornadoDetection", kindString, func(p *models.ParamValues, s *string, _ *float64, _ json.RawMessage) { p.TornadoDetection = s }},
	{"waterspoutDetection", kindString, func(p *models.ParamValues, s *string, _ *float64, _ json.RawMessage) { p.WaterspoutDetection = s }},
	{"CMAMtext", kindText, func(p *models.ParamValues, s *string, _ *float64, _ json.RawMessage) { p.CMAMText = s }},
	{"CMAMlongtext", kindText, func(p *models.ParamValues, s *string, _ *float64, _ json.RawMessage) { p.CMAMLongText = s }},
	{"WEAHandling", kindString, func(p *models.ParamValues, s *string, _ *float64, _ json.RawMessage) { p.WEAHandling = s }},
	{"BLOCKCHANNEL", kindVerbatim, func(p *models.ParamValues, _ *string, _ *float64, raw json.RawMessage) { p.BlockChannel = raw }},
	{"expiredReferences", kindVerbatim, func(p *models.ParamValues, _ *string, _ *float64, raw json.RawMessage) { p.ExpiredReferences = raw }},
}

// projectParams applies the allow-list to a decoded parameters object.
func projectParams(params map[string]any) models.ParamValues {
	var out models.ParamValues
	for _, rule := range paramRules {
		v, ok := params[rule.key]
		if !ok || v == nil {
			continue
		}
		switch rule.kind {
		case kindString:
			rule.assign(&out, coerceString(v), nil, nil)
		case kindText:
			rule.assign(&out, coerceText(v), nil, nil)
		case kindNumeric:
			rule.assign(&out, nil, coerceNumeric(v), nil)
		case kindVerbatim:
			if raw, err := json.Marshal(v); err == nil {
				rule.assign(&out, nil, nil, raw)
			}
		}
	}
	return out
}

// coerceString returns the first array element as a string, or the
// stringified scalar. Empty arrays yield nil.
func coerceString(v any) *string {
	if arr, ok := v.([]any); ok {
		if len(arr) == 0 {
			return nil
		}
		s := stringify(arr[0])
		return &s
	}
	s := stringify(v)
	return &s
}

// coerceText joins array elements with newlines, or stringifies a scalar.
func coerceText(v any) *string {
	if arr, ok := v.([]any); ok {
		if len(arr) == 0 {
			return nil
		}
		parts := make([]string, 0, len(arr))
		for _, e := range arr {
			parts = append(parts, stringify(e))
		}
		s := strings.Join(parts, "\n")
		return &s
	}
	s := stringify(v)
	return &s
}

// coerceNumeric parses the first array element (or the scalar itself) as a
// float64. Unparsable values yield nil, never an error.
func coerceNumeric(v any) *float64 {
	if arr, ok := v.([]any); ok {
		if len(arr) == 0 {
			return nil
		}
		v = arr[0]
	}
	switch n := v.(type) {
	case float64:
		return &n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	case nil:
		return ""
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
