package mahjong

const (
	BaseScore          = 10
	bonusTilePoint     = 1
	windPongPoint      = 1
	windKongPoint      = 2
	ordinaryKongPoint  = 1
	concealedHandMult  = 2
	selfDrawMultiplier = 2
)

// ScoreDetail 一次和牌的计分明细
type ScoreDetail struct {
	Base              int       `json:"base"`
	BonusPoints       int       `json:"bonusPoints"`
	MeldPoints        int       `json:"meldPoints"`
	Patterns          []Pattern `json:"patterns"`
	PatternMultiplier int       `json:"patternMultiplier"`
	HandScore         int       `json:"handScore"` // 番型倍数之后、门清/自摸/骰子倍数之前
	Concealed         bool      `json:"concealed"`
	SelfDraw          bool      `json:"selfDraw"`
	DiceMultiplier    int       `json:"diceMultiplier"`
	Payout            int       `json:"payout"` // 每个付款方支付的点数
}

// meldPoints 副露加分：风牌刻子 +1，风牌杠 +2，其他杠 +1
func meldPoints(melds []Meld) int {
	points := 0
	for _, m := range melds {
		switch m.Type {
		case MeldPong:
			if m.Tile().IsWind() {
				points += windPongPoint
			}
		case MeldKong:
			if m.Tile().IsWind() {
				points += windKongPoint
			} else {
				points += ordinaryKongPoint
			}
		}
	}
	return points
}

// CalculateScore 基础分 10，加花牌和副露加分，再乘番型倍数
func CalculateScore(concealed []Tile, melds []Meld, bonusCount int) *ScoreDetail {
	patterns, mult := EvaluatePatterns(&PatternContext{Concealed: concealed, Melds: melds})
	detail := &ScoreDetail{
		Base:              BaseScore,
		BonusPoints:       bonusCount * bonusTilePoint,
		MeldPoints:        meldPoints(melds),
		Patterns:          patterns,
		PatternMultiplier: mult,
		Concealed:         len(melds) == 0,
		DiceMultiplier:    1,
	}
	detail.HandScore = (detail.Base + detail.BonusPoints + detail.MeldPoints) * mult
	return detail
}

// ApplyPayout 门清 ×2，自摸再 ×2，最后乘骰子倍数
func (d *ScoreDetail) ApplyPayout(selfDraw bool, diceMultiplier int) int {
	if diceMultiplier < 1 {
		diceMultiplier = 1
	}
	d.SelfDraw = selfDraw
	d.DiceMultiplier = diceMultiplier
	payout := d.HandScore
	if d.Concealed {
		payout *= concealedHandMult
	}
	if selfDraw {
		payout *= selfDrawMultiplier
	}
	payout *= diceMultiplier
	d.Payout = payout
	return payout
}
