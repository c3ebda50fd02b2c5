package outcome

import (
	"regexp"
	"strings"
)

// MarketKind é a estratégia de resolução de um mercado
type MarketKind int

const (
	MarketUnknown  MarketKind = iota
	MarketThreeWay            // 1X2: casa / empate / fora
	MarketTwoWay              // moneyline: sem empate
	MarketTotals              // over/under sobre a soma do placar
)

func (k MarketKind) String() string {
	switch k {
	case MarketThreeWay:
		return "three_way"
	case MarketTwoWay:
		return "two_way"
	case MarketTotals:
		return "totals"
	default:
		return "unknown"
	}
}

// pick é a seleção normalizada dentro de um mercado
type pick int

const (
	pickUnknown pick = iota
	pickHome
	pickDraw
	pickAway
	pickOver
	pickUnder
)

// marketRule associa um termo do nome exibido a uma estratégia.
// A ordem importa: a primeira regra cujo termo aparece como palavra no nome vence.
type marketRule struct {
	term string
	kind MarketKind
	re   *regexp.Regexp
}

// marketRules é a tabela de classificação; termos de handicap vêm primeiro e
// forçam MarketUnknown para que "Asian Handicap Line" não vire moneyline
var marketRules = compileRules([]marketRule{
	{term: "handicap", kind: MarketUnknown},
	{term: "spread", kind: MarketUnknown},
	{term: "ats", kind: MarketUnknown},

	{term: "1x2", kind: MarketThreeWay},
	{term: "3way", kind: MarketThreeWay},
	{term: "3-way", kind: MarketThreeWay},
	{term: "3 way", kind: MarketThreeWay},

	{term: "over", kind: MarketTotals},
	{term: "under", kind: MarketTotals},
	{term: "o/u", kind: MarketTotals},
	{term: "total", kind: MarketTotals},
	{term: "totals", kind: MarketTotals},

	{term: "moneyline", kind: MarketTwoWay},
	{term: "money line", kind: MarketTwoWay},
	{term: "money-line", kind: MarketTwoWay},
	{term: "money", kind: MarketTwoWay},
	{term: "line", kind: MarketTwoWay},
	{term: "2way", kind: MarketTwoWay},
	{term: "2-way", kind: MarketTwoWay},
	{term: "2 way", kind: MarketTwoWay},
	{term: "home/away", kind: MarketTwoWay},
	{term: "head to head", kind: MarketTwoWay},
	{term: "h2h", kind: MarketTwoWay},
	{term: "to win match", kind: MarketTwoWay},

	{term: "result", kind: MarketThreeWay},
	{term: "winner", kind: MarketThreeWay},
})

// compileRules casa o termo só como palavra inteira ("over" não casa com "turnover")
func compileRules(rules []marketRule) []marketRule {
	for i := range rules {
		rules[i].re = regexp.MustCompile(`(?:^|[^a-z0-9])` + regexp.QuoteMeta(rules[i].term) + `(?:[^a-z0-9]|$)`)
	}
	return rules
}

// pickTable aceita apenas as seleções que fazem sentido em cada estratégia
var pickTable = map[MarketKind]map[string]pick{
	MarketThreeWay: {
		"1": pickHome, "home": pickHome,
		"x": pickDraw, "draw": pickDraw,
		"2": pickAway, "away": pickAway,
	},
	MarketTwoWay: {
		"1": pickHome, "home": pickHome,
		"2": pickAway, "away": pickAway,
	},
	MarketTotals: {
		"over": pickOver, "o": pickOver,
		"under": pickUnder, "u": pickUnder,
	},
}

var (
	numberRe        = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	lineRe          = regexp.MustCompile(`^[+-]?(\d+(?:[.,]\d+)?)$`)
	bracketReplacer = strings.NewReplacer("(", " ", ")", " ", "[", " ", "]", " ", ":", " ")
)

// Classify encontra a estratégia do mercado pelo nome exibido
func Classify(market string) MarketKind {
	key := normalize(market)
	if key == "" {
		return MarketUnknown
	}
	for _, r := range marketRules {
		if r.re.MatchString(key) {
			return r.kind
		}
	}
	return MarketUnknown
}

// line extrai o primeiro número decimal do nome do mercado.
// Números soltos têm preferência sobre dígitos colados em palavras ("1st Half Over 0.5" -> 0.5).
func line(market string) (string, bool) {
	for _, f := range strings.Fields(bracketReplacer.Replace(market)) {
		if m := lineRe.FindStringSubmatch(f); m != nil {
			return strings.ReplaceAll(m[1], ",", "."), true
		}
	}
	m := numberRe.FindString(market)
	if m == "" {
		return "", false
	}
	return strings.ReplaceAll(m, ",", "."), true
}

func parsePick(kind MarketKind, selection string) pick {
	fields := strings.Fields(strings.ToLower(selection))
	if len(fields) == 0 {
		return pickUnknown
	}
	return pickTable[kind][fields[0]]
}

func normalize(s string) string {
	s = strings.ToLower(s)
	s = bracketReplacer.Replace(s)
	fields := strings.Fields(s)
	out := fields[:0]
	for _, f := range fields {
		// separadores soltos ("Match Result - Full Time")
		if strings.Trim(f, "+-") == "" {
			continue
		}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}
