package mahjong

import (
	"math/rand"
	"slices"
	"testing"
)

func tiles(names ...string) []Tile {
	return MustParseTiles(names...)
}

func TestCanWinHand_Standard(t *testing.T) {
	cases := []struct {
		name  string
		hand  []Tile
		melds []Meld
		want  bool
	}{
		{
			name: "四面子一雀头",
			hand: tiles("B1", "B2", "B3", "C1", "C2", "C3", "D1", "D2", "D3", "C7", "C8", "C9", "WE", "WE"),
			want: true,
		},
		{
			name: "字牌刻子",
			hand: tiles("DR", "DR", "DR", "WN", "WN", "WN", "B4", "B5", "B6", "D9", "D9", "D9", "C5", "C5"),
			want: true,
		},
		{
			name: "字牌不能组顺子",
			hand: tiles("WE", "WS", "WW", "B1", "B2", "B3", "C1", "C2", "C3", "D1", "D2", "D3", "C9", "C9"),
			want: false,
		},
		{
			name: "顺子不能跨花色",
			hand: tiles("B8", "B9", "C1", "B1", "B2", "B3", "C4", "C5", "C6", "D1", "D2", "D3", "WE", "WE"),
			want: false,
		},
		{
			name:  "带副露凑满 14 张",
			hand:  tiles("B1", "B2", "B3", "C1", "C2", "C3", "D1", "D2", "D3", "WE", "WE"),
			melds: []Meld{NewPongMeld(Red, 1)},
			want:  true,
		},
		{
			name:  "杠按 4 张折算",
			hand:  tiles("B1", "B2", "B3", "C1", "C2", "C3", "D1", "D2", "D3", "WE", "WE"),
			melds: []Meld{NewKongMeld(Red, 1)},
			want:  false,
		},
		{
			name: "张数不对",
			hand: tiles("B1", "B2", "B3", "WE", "WE"),
			want: false,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := CanWinHand(c.hand, c.melds); got != c.want {
				t.Fatalf("CanWinHand(%v) = %v, want %v", c.hand, got, c.want)
			}
		})
	}
}

func TestCanFormMelds_Backtracking(t *testing.T) {
	// 111222333 既可以是三个刻子也可以是三个顺子
	if !CanFormMelds(CountTiles(tiles("B1", "B1", "B1", "B2", "B2", "B2", "B3", "B3", "B3"))) {
		t.Fatalf("111222333 应该能拆成面子")
	}
	// 112233 只能拆成两个顺子
	if !CanFormMelds(CountTiles(tiles("C1", "C1", "C2", "C2", "C3", "C3"))) {
		t.Fatalf("112233 应该能拆成两个顺子")
	}
	if CanFormMelds(CountTiles(tiles("D1", "D1", "D2", "D3"))) {
		t.Fatalf("1123 不应该能拆成面子")
	}
}

func TestWinningTilesFor_NineGates(t *testing.T) {
	hand := tiles("B1", "B1", "B1", "B2", "B3", "B4", "B5", "B6", "B7", "B8", "B9", "B9", "B9")
	waits := WinningTilesFor(hand, nil, nil)
	want := tiles("B1", "B2", "B3", "B4", "B5", "B6", "B7", "B8", "B9")
	if !slices.Equal(waits, want) {
		t.Fatalf("九莲宝灯应该听 1-9 条, got %v", waits)
	}
}

func TestWinningTilesFor_NotTenpai(t *testing.T) {
	hand := tiles("B1", "B4", "B7", "C2", "C5", "C8", "D3", "D6", "D9", "WE", "WS", "WW", "DR")
	if waits := WinningTilesFor(hand, nil, nil); len(waits) != 0 {
		t.Fatalf("散牌不应该听牌, got %v", waits)
	}
}

func TestWinningTilesFor_CustomPool(t *testing.T) {
	hand := tiles("B1", "B2", "B3", "C1", "C2", "C3", "D1", "D2", "D3", "C7", "C8", "WE", "WE")
	waits := WinningTilesFor(hand, nil, tiles("C6", "C9", "DR"))
	if !slices.Equal(waits, tiles("C6", "C9")) {
		t.Fatalf("两面听 C6/C9, got %v", waits)
	}
}

func TestPatternPredicates(t *testing.T) {
	sevenPairs := tiles("B1", "B1", "B3", "B3", "C5", "C5", "C5", "C5", "D2", "D2", "WE", "WE", "DR", "DR")
	if !IsSevenPairs(sevenPairs, nil) {
		t.Fatalf("四张同牌应该算两对")
	}
	if IsSevenPairs(sevenPairs[:12], []Meld{NewPongMeld(Red, 0)}) {
		t.Fatalf("有副露不能是七对")
	}

	pure := tiles("B1", "B1", "B1", "B2", "B3", "B4", "B5", "B6", "B7", "B8", "B9", "B9", "B9", "B5")
	if !IsPureSuit(pure, nil) || IsHalfSuit(pure, nil) {
		t.Fatalf("清一色和混一色应该互斥")
	}

	half := tiles("C1", "C1", "C1", "C5", "C5", "C5", "C9", "C9", "C9", "DR", "DR")
	melds := []Meld{NewPongMeld(East, 2)}
	if !IsHalfSuit(half, melds) {
		t.Fatalf("万子加字牌应该是混一色")
	}
	if !IsAllTriplets(half, melds) {
		t.Fatalf("全是刻子应该是碰碰胡")
	}
	if IsAllTriplets(half, []Meld{NewChiMeld(tiles("C2", "C3", "C4"), 2)}) {
		t.Fatalf("有吃的副露不能是碰碰胡")
	}
}

type mapCache struct {
	data map[string]interface{}
	hits int
}

func (c *mapCache) Get(key string) (interface{}, bool) {
	v, ok := c.data[key]
	if ok {
		c.hits++
	}
	return v, ok
}

func (c *mapCache) Set(key string, value interface{}) bool {
	c.data[key] = value
	return true
}

func TestTenpaiSearcher_Cache(t *testing.T) {
	cache := &mapCache{data: make(map[string]interface{})}
	s := NewTenpaiSearcher(cache)
	hand := tiles("B1", "B2", "B3", "C1", "C2", "C3", "D1", "D2", "D3", "C7", "C8", "WE", "WE")

	first := s.WinningTiles(hand, nil)
	// 顺序不同但计数相同的手牌命中同一个缓存条目
	shuffled := slices.Clone(hand)
	slices.Reverse(shuffled)
	second := s.WinningTiles(shuffled, nil)

	if cache.hits != 1 {
		t.Fatalf("第二次查询应该命中缓存, hits=%d", cache.hits)
	}
	if !slices.Equal(first, second) || !slices.Equal(first, tiles("C6", "C9")) {
		t.Fatalf("缓存结果不一致: %v %v", first, second)
	}

	// 副露张数不同的手牌不能共用缓存
	s.WinningTiles(hand[:10], []Meld{NewPongMeld(Red, 1)})
	if cache.hits != 1 {
		t.Fatalf("不同副露不应命中缓存, hits=%d", cache.hits)
	}
}

func TestTenpaiSearcher_TingDiscardables(t *testing.T) {
	var s *TenpaiSearcher
	hand := tiles("B1", "B2", "B3", "B9", "C4", "C5", "C6", "D7", "D8", "D9", "WE", "WE", "WE", "DR")
	got := s.TingDiscardables(hand, nil)
	if !slices.Equal(got, tiles("B9", "DR")) {
		t.Fatalf("打 B9 或 DR 后听牌, got %v", got)
	}
	if s.IsTenpaiAfter(hand, nil, South) {
		t.Fatalf("手牌里没有的牌不能打")
	}
}

func BenchmarkWinningTiles_NoCache(b *testing.B) {
	hand := tiles("B1", "B1", "B1", "B2", "B3", "B4", "B5", "B6", "B7", "B8", "B9", "B9", "B9")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = WinningTilesFor(hand, nil, nil)
	}
}

func BenchmarkWinningTiles_Cached(b *testing.B) {
	s := NewTenpaiSearcher(&mapCache{data: make(map[string]interface{})})
	hand := tiles("B1", "B1", "B1", "B2", "B3", "B4", "B5", "B6", "B7", "B8", "B9", "B9", "B9")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.WinningTiles(hand, nil)
	}
}

func TestWinningTilesFor_SingleWait(t *testing.T) {
	hand := tiles("B1", "B2", "B3", "B4", "B5", "B6", "B7", "B8", "B9", "C2", "C2", "C2", "D5")
	if got := WinningTilesFor(hand, nil, nil); !slices.Equal(got, tiles("D5")) {
		t.Fatalf("单钓 D5, got %v", got)
	}
}

func TestCanWinHand_OrderIndependent(t *testing.T) {
	hands := [][]Tile{
		tiles("B1", "B2", "B3", "C1", "C2", "C3", "D1", "D2", "D3", "C7", "C8", "C9", "WE", "WE"),
		tiles("B3", "B4", "B5", "B5", "B5", "B5", "C1", "C2", "C3", "C7", "C8", "C9", "D1", "D1"),
		tiles("B1", "B1", "B1", "B2", "B3", "B4", "B5", "B6", "B7", "B8", "B9", "B9", "B9", "B5"),
		tiles("WE", "WS", "WW", "B1", "B2", "B3", "C1", "C2", "C3", "D1", "D2", "D3", "C9", "C9"),
		tiles("B8", "B9", "C1", "B1", "B2", "B3", "C4", "C5", "C6", "D1", "D2", "D3", "WE", "WE"),
	}
	rng := rand.New(rand.NewSource(3))
	for i, hand := range hands {
		want := CanWinHand(hand, nil)
		for n := 0; n < 20; n++ {
			shuffled := slices.Clone(hand)
			rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
			if got := CanWinHand(shuffled, nil); got != want {
				t.Fatalf("第 %d 手牌打乱顺序后结果改变: %v -> %v, %v", i, want, got, shuffled)
			}
		}
	}
}
