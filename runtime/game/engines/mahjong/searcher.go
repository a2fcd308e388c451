package mahjong

import (
	"strconv"
	"strings"
)

/*
	和牌判定：
		枚举雀头，对剩余部分做面子拆解的递归回溯
		每一层取最小的牌，先尝试刻子，再尝试顺子，任何一支失败都会退回去换另一支
		计数数组按值传递，每个分支持有自己的拷贝
	听牌：
		枚举候选牌池，逐张加入后跑和牌判定
*/

// TileCounts 按牌种计数
type TileCounts [NumTileKinds]int

func CountTiles(tiles []Tile) TileCounts {
	var counts TileCounts
	for _, t := range tiles {
		if t.Valid() {
			counts[t]++
		}
	}
	return counts
}

// CanFormMelds 判断计数能否全部拆成刻子和顺子
func CanFormMelds(counts TileCounts) bool {
	first := -1
	for i, v := range counts {
		if v > 0 {
			first = i
			break
		}
	}
	if first < 0 {
		return true
	}
	t := Tile(first)

	if counts[first] >= 3 {
		next := counts
		next[first] -= 3
		if CanFormMelds(next) {
			return true
		}
	}

	// 只有 1-7 可以作为顺子的开头
	if t.IsSuited() && t.Rank() <= 7 && counts[first+1] > 0 && counts[first+2] > 0 {
		next := counts
		next[first]--
		next[first+1]--
		next[first+2]--
		if CanFormMelds(next) {
			return true
		}
	}
	return false
}

// CanFormStandardHand 3n+2 张能否组成 n 个面子加 1 个雀头
func CanFormStandardHand(tiles []Tile) bool {
	if len(tiles) == 0 {
		return true
	}
	if len(tiles)%3 != 2 {
		return false
	}
	counts := CountTiles(tiles)
	for i := range counts {
		if counts[i] < 2 {
			continue
		}
		next := counts
		next[i] -= 2
		if CanFormMelds(next) {
			return true
		}
	}
	return false
}

// meldTileCount 副露折算的张数：顺子按实际张数，刻子 3，杠 4
func meldTileCount(melds []Meld) int {
	n := 0
	for _, m := range melds {
		n += m.TileCount()
	}
	return n
}

// CanWinHand 手牌加副露必须凑满 14 张，只对手牌部分做标准型拆解
func CanWinHand(concealed []Tile, melds []Meld) bool {
	if len(concealed)+meldTileCount(melds) != 14 {
		return false
	}
	return CanFormStandardHand(concealed)
}

// aggregateTiles 手牌加展开后的副露，去掉花牌
func aggregateTiles(concealed []Tile, melds []Meld) []Tile {
	out := make([]Tile, 0, 18)
	for _, t := range concealed {
		if !t.IsBonus() {
			out = append(out, t)
		}
	}
	for _, m := range melds {
		out = append(out, m.Expand()...)
	}
	return out
}

// IsSevenPairs 七对：无副露，14 张恰好 7 组对子，四张同牌算两对
func IsSevenPairs(concealed []Tile, melds []Meld) bool {
	if len(melds) > 0 {
		return false
	}
	core := aggregateTiles(concealed, nil)
	if len(core) != 14 {
		return false
	}
	counts := CountTiles(core)
	pairs := 0
	for _, v := range counts {
		switch v {
		case 0:
		case 2:
			pairs++
		case 4:
			pairs += 2
		default:
			return false
		}
	}
	return pairs == 7
}

// IsPureSuit 清一色：全部是同一花色的数牌
func IsPureSuit(concealed []Tile, melds []Meld) bool {
	all := aggregateTiles(concealed, melds)
	if len(all) == 0 {
		return false
	}
	suit := all[0].Suit()
	if suit < 0 {
		return false
	}
	for _, t := range all {
		if t.Suit() != suit {
			return false
		}
	}
	return true
}

// IsHalfSuit 混一色：一种花色的数牌加字牌，至少有一张字牌，因此和清一色互斥
func IsHalfSuit(concealed []Tile, melds []Meld) bool {
	all := aggregateTiles(concealed, melds)
	suit := -1
	honors := 0
	for _, t := range all {
		if t.IsHonor() {
			honors++
			continue
		}
		if suit < 0 {
			suit = t.Suit()
		} else if t.Suit() != suit {
			return false
		}
	}
	return suit >= 0 && honors > 0
}

// IsAllTriplets 碰碰胡：副露只能是刻子或杠，手牌部分恰好是若干刻子加一个雀头
func IsAllTriplets(concealed []Tile, melds []Meld) bool {
	for _, m := range melds {
		if m.Type == MeldChi {
			return false
		}
	}
	core := aggregateTiles(concealed, nil)
	if len(core)%3 != 2 {
		return false
	}
	counts := CountTiles(core)
	pairFound := false
	for _, v := range counts {
		switch v {
		case 0, 3:
		case 2:
			if pairFound {
				return false
			}
			pairFound = true
		default:
			return false
		}
	}
	return pairFound
}

// WinningTilesFor 返回能让手牌和牌的全部候选牌，pool 为空时使用默认牌池
// 不排除已经持有 4 张的牌，结果只表示形状上的听牌
func WinningTilesFor(hand []Tile, melds []Meld, pool []Tile) []Tile {
	if pool == nil {
		pool = DefaultCandidatePool
	}
	trial := make([]Tile, len(hand)+1)
	copy(trial, hand)
	wins := make([]Tile, 0, 4)
	for _, t := range pool {
		trial[len(hand)] = t
		if CanWinHand(trial, melds) {
			wins = append(wins, t)
		}
	}
	return wins
}

// WaitsCache 听牌结果缓存，common/cache.GeneralCache 满足该接口
type WaitsCache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}) bool
}

// TenpaiSearcher 带缓存的听牌搜索，结果只取决于手牌计数和副露张数
type TenpaiSearcher struct {
	cache WaitsCache
}

// NewTenpaiSearcher cache 为 nil 时不缓存
func NewTenpaiSearcher(cache WaitsCache) *TenpaiSearcher {
	return &TenpaiSearcher{cache: cache}
}

func handKey(hand []Tile, melds []Meld) string {
	counts := CountTiles(hand)
	var sb strings.Builder
	sb.Grow(NumTileKinds + 4)
	for _, v := range counts {
		sb.WriteByte(byte('0' + v))
	}
	sb.WriteByte('|')
	sb.WriteString(strconv.Itoa(meldTileCount(melds)))
	return sb.String()
}

// WinningTiles 默认牌池下的听牌
func (s *TenpaiSearcher) WinningTiles(hand []Tile, melds []Meld) []Tile {
	if s == nil || s.cache == nil {
		return WinningTilesFor(hand, melds, nil)
	}
	key := handKey(hand, melds)
	if v, ok := s.cache.Get(key); ok {
		if waits, ok := v.([]Tile); ok {
			return waits
		}
	}
	waits := WinningTilesFor(hand, melds, nil)
	s.cache.Set(key, waits)
	return waits
}

// IsTenpaiAfter 打出 discard 之后是否听牌
func (s *TenpaiSearcher) IsTenpaiAfter(hand []Tile, melds []Meld, discard Tile) bool {
	trial, ok := removeTiles(hand, discard)
	if !ok {
		return false
	}
	return len(s.WinningTiles(trial, melds)) > 0
}

// TingDiscardables 打出后能听牌的牌，按首次出现顺序去重
func (s *TenpaiSearcher) TingDiscardables(hand []Tile, melds []Meld) []Tile {
	out := make([]Tile, 0, 4)
	var seen TileCounts
	for _, t := range hand {
		if !t.Valid() || seen[t] > 0 {
			continue
		}
		seen[t]++
		if s.IsTenpaiAfter(hand, melds, t) {
			out = append(out, t)
		}
	}
	return out
}

// removeTiles 返回移除指定牌后的新切片，缺牌时 ok=false
func removeTiles(hand []Tile, tiles ...Tile) ([]Tile, bool) {
	out := copyTiles(hand)
	for _, t := range tiles {
		idx := -1
		for i, h := range out {
			if h == t {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, false
		}
		out = append(out[:idx], out[idx+1:]...)
	}
	return out, true
}
