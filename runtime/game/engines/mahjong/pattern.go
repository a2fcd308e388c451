package mahjong

// Pattern 计分番型
type Pattern string

const (
	PatternSevenPairs  Pattern = "seven-pairs"  // 七对
	PatternPureSuit    Pattern = "pure-suit"    // 清一色
	PatternHalfSuit    Pattern = "half-suit"    // 混一色
	PatternAllTriplets Pattern = "all-triplets" // 碰碰胡
)

type PatternContext struct {
	Concealed []Tile // 和牌时的手牌（荣和已加入被和的牌）
	Melds     []Meld
}

type patternChecker struct {
	id         Pattern
	multiplier int
	excludedBy []Pattern // 已命中这些番型时跳过
	check      func(ctx *PatternContext) bool
}

// 顺序即判定顺序，被排除的番型必须排在排除它的番型之后
var patternCheckers = []patternChecker{
	{
		id:         PatternSevenPairs,
		multiplier: 2,
		check: func(ctx *PatternContext) bool {
			return IsSevenPairs(ctx.Concealed, ctx.Melds)
		},
	},
	{
		id:         PatternPureSuit,
		multiplier: 4,
		check: func(ctx *PatternContext) bool {
			return IsPureSuit(ctx.Concealed, ctx.Melds)
		},
	},
	{
		id:         PatternHalfSuit,
		multiplier: 2,
		excludedBy: []Pattern{PatternPureSuit},
		check: func(ctx *PatternContext) bool {
			return IsHalfSuit(ctx.Concealed, ctx.Melds)
		},
	},
	{
		id:         PatternAllTriplets,
		multiplier: 2,
		check: func(ctx *PatternContext) bool {
			return IsAllTriplets(ctx.Concealed, ctx.Melds)
		},
	},
}

// EvaluatePatterns 返回命中的番型和累乘后的倍数
func EvaluatePatterns(ctx *PatternContext) ([]Pattern, int) {
	hits := make([]Pattern, 0, 2)
	multiplier := 1
	for _, c := range patternCheckers {
		if containsPattern(hits, c.excludedBy...) {
			continue
		}
		if c.check(ctx) {
			hits = append(hits, c.id)
			multiplier *= c.multiplier
		}
	}
	return hits, multiplier
}

func containsPattern(hits []Pattern, targets ...Pattern) bool {
	for _, h := range hits {
		for _, t := range targets {
			if h == t {
				return true
			}
		}
	}
	return false
}
