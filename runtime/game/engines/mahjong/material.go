package mahjong

import (
	"fmt"
	"math/rand"
	"slices"
)

// Tile 牌的种类。同种牌的多张拷贝互相不可区分，所以只记录种类
// 枚举顺序即排序顺序：数牌(按花色再按点数) < 风牌 < 箭牌 < 花牌
type Tile int

const (
	// 条子 B1-B9 (0-8)
	Bam1 Tile = iota
	Bam2
	Bam3
	Bam4
	Bam5
	Bam6
	Bam7
	Bam8
	Bam9

	// 万子 C1-C9 (9-17)
	Char1
	Char2
	Char3
	Char4
	Char5
	Char6
	Char7
	Char8
	Char9

	// 筒子 D1-D9 (18-26)
	Dot1
	Dot2
	Dot3
	Dot4
	Dot5
	Dot6
	Dot7
	Dot8
	Dot9

	// 风牌 (27-30)
	East
	South
	West
	North

	// 箭牌 (31-33)，普通字牌，可以碰杠
	Red
	Green
	White

	// 花牌 (34-41)，各一张，摸到立即补花
	Flower1
	Flower2
	Flower3
	Flower4
	Flower5
	Flower6
	Flower7
	Flower8
)

const (
	NumTileKinds     = 42  // 全部牌种
	NumPlayableKinds = 34  // 除花牌外的牌种
	TileLimit        = 144 // 一副牌的总张数
	CopiesPerKind    = 4
)

var suitLetters = [3]byte{'B', 'C', 'D'}

var tileNames = [NumTileKinds]string{
	"B1", "B2", "B3", "B4", "B5", "B6", "B7", "B8", "B9",
	"C1", "C2", "C3", "C4", "C5", "C6", "C7", "C8", "C9",
	"D1", "D2", "D3", "D4", "D5", "D6", "D7", "D8", "D9",
	"WE", "WS", "WW", "WN",
	"DR", "DG", "DW",
	"F1", "F2", "F3", "F4", "F5", "F6", "F7", "F8",
}

var tileByName = func() map[string]Tile {
	m := make(map[string]Tile, NumTileKinds)
	for i, name := range tileNames {
		m[name] = Tile(i)
	}
	return m
}()

// DefaultCandidatePool 听牌搜索默认尝试的牌池：全部 34 种非花牌
var DefaultCandidatePool = func() []Tile {
	pool := make([]Tile, 0, NumPlayableKinds)
	for t := Bam1; t <= White; t++ {
		pool = append(pool, t)
	}
	return pool
}()

// ParseTile 解析牌面编码，例如 "B1"、"WE"、"DR"、"F3"
func ParseTile(s string) (Tile, error) {
	t, ok := tileByName[s]
	if !ok {
		return 0, fmt.Errorf("unknown tile %q", s)
	}
	return t, nil
}

// MustParseTiles 测试和常量构造用
func MustParseTiles(names ...string) []Tile {
	out := make([]Tile, 0, len(names))
	for _, name := range names {
		t, err := ParseTile(name)
		if err != nil {
			panic(err)
		}
		out = append(out, t)
	}
	return out
}

func (t Tile) Valid() bool {
	return t >= Bam1 && t <= Flower8
}

func (t Tile) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Tile(%d)", int(t))
	}
	return tileNames[t]
}

func (t Tile) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid tile %d", int(t))
	}
	return []byte(tileNames[t]), nil
}

func (t *Tile) UnmarshalText(text []byte) error {
	parsed, err := ParseTile(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Tile) IsSuited() bool {
	return t >= Bam1 && t <= Dot9
}

// Suit 花色下标 0-2，非数牌返回 -1
func (t Tile) Suit() int {
	if !t.IsSuited() {
		return -1
	}
	return int(t) / 9
}

// Rank 数牌点数 1-9，非数牌返回 0
func (t Tile) Rank() int {
	if !t.IsSuited() {
		return 0
	}
	return int(t)%9 + 1
}

func (t Tile) IsWind() bool {
	return t >= East && t <= North
}

func (t Tile) IsDragon() bool {
	return t >= Red && t <= White
}

func (t Tile) IsHonor() bool {
	return t.IsWind() || t.IsDragon()
}

// IsBonus 只有 8 张花牌是补花牌，箭牌不是
func (t Tile) IsBonus() bool {
	return t >= Flower1 && t <= Flower8
}

// SortKey 全序键，枚举值本身即满足分组顺序
func (t Tile) SortKey() int {
	return int(t)
}

// SuitedTile 按花色和点数构造数牌
func SuitedTile(suit, rank int) (Tile, bool) {
	if suit < 0 || suit > 2 || rank < 1 || rank > 9 {
		return 0, false
	}
	return Tile(suit*9 + rank - 1), true
}

// SortTiles 按牌序原地排序，只用于给牌的主人展示
func SortTiles(tiles []Tile) {
	slices.SortFunc(tiles, func(a, b Tile) int {
		return a.SortKey() - b.SortKey()
	})
}

func copyTiles(tiles []Tile) []Tile {
	out := make([]Tile, len(tiles))
	copy(out, tiles)
	return out
}

// NewTileDeck 生成未洗的 144 张牌
func NewTileDeck() []Tile {
	tiles := make([]Tile, 0, TileLimit)
	for t := Bam1; t <= White; t++ {
		for i := 0; i < CopiesPerKind; i++ {
			tiles = append(tiles, t)
		}
	}
	for t := Flower1; t <= Flower8; t++ {
		tiles = append(tiles, t)
	}
	return tiles
}

// BuildWall 生成并均匀洗乱一副 144 张的牌墙
func BuildWall(rng *rand.Rand) []Tile {
	tiles := NewTileDeck()
	rng.Shuffle(len(tiles), func(i, j int) {
		tiles[i], tiles[j] = tiles[j], tiles[i]
	})
	return tiles
}

// DeckManager 牌墙管理：尾部正常摸牌，头部补花和杠后补牌
type DeckManager struct {
	wall []Tile
	head int
	rng  *rand.Rand
}

func NewDeckManager(rng *rand.Rand) *DeckManager {
	return &DeckManager{
		wall: make([]Tile, 0, TileLimit),
		rng:  rng,
	}
}

// InitRound 洗一副新牌
func (dm *DeckManager) InitRound() {
	dm.Load(BuildWall(dm.rng))
}

// Load 直接装入指定顺序的牌墙，下标 0 为头，末尾为尾
func (dm *DeckManager) Load(tiles []Tile) {
	dm.wall = append(dm.wall[:0], tiles...)
	dm.head = 0
}

// DrawTail 正常摸牌
func (dm *DeckManager) DrawTail() (Tile, bool) {
	if dm.Remaining() == 0 {
		return 0, false
	}
	t := dm.wall[len(dm.wall)-1]
	dm.wall = dm.wall[:len(dm.wall)-1]
	return t, true
}

// DrawHead 补花、杠后补牌
func (dm *DeckManager) DrawHead() (Tile, bool) {
	if dm.Remaining() == 0 {
		return 0, false
	}
	t := dm.wall[dm.head]
	dm.head++
	return t, true
}

func (dm *DeckManager) Remaining() int {
	return len(dm.wall) - dm.head
}

// Reset 清空牌墙，局与局之间调用
func (dm *DeckManager) Reset() {
	dm.wall = dm.wall[:0]
	dm.head = 0
}
