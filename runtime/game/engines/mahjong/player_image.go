package mahjong

type MeldType string

const (
	MeldPong MeldType = "pong"
	MeldKong MeldType = "kong"
	MeldChi  MeldType = "chi"
)

// Meld 副露，成立后本局内不可变
type Meld struct {
	Type  MeldType
	Tiles []Tile // 刻子和杠只记一张，顺子记完整三张（已排序）
	From  int    // 被鸣牌的座位
}

func NewPongMeld(tile Tile, from int) Meld {
	return Meld{Type: MeldPong, Tiles: []Tile{tile}, From: from}
}

func NewKongMeld(tile Tile, from int) Meld {
	return Meld{Type: MeldKong, Tiles: []Tile{tile}, From: from}
}

func NewChiMeld(tiles []Tile, from int) Meld {
	sorted := copyTiles(tiles)
	SortTiles(sorted)
	return Meld{Type: MeldChi, Tiles: sorted, From: from}
}

// Tile 刻子/杠的牌
func (m Meld) Tile() Tile {
	if len(m.Tiles) == 0 {
		return 0
	}
	return m.Tiles[0]
}

// TileCount 副露折算的张数
func (m Meld) TileCount() int {
	switch m.Type {
	case MeldPong:
		return 3
	case MeldKong:
		return 4
	default:
		return len(m.Tiles)
	}
}

// Expand 展开成实际的牌
func (m Meld) Expand() []Tile {
	switch m.Type {
	case MeldPong, MeldKong:
		out := make([]Tile, m.TileCount())
		for i := range out {
			out[i] = m.Tile()
		}
		return out
	default:
		return copyTiles(m.Tiles)
	}
}

// PlayerImage 一个座位在本局中的全部状态，只由所属房间的 actor 读写
type PlayerImage struct {
	UserID      string
	Name        string
	SeatIndex   int
	Tiles       []Tile // 手牌，最后一张可能是刚摸的牌
	BonusTiles  []Tile // 花牌
	Melds       []Meld
	DiscardPile []Tile
	Ting        bool  // 已听牌
	TingPending bool  // 本巡宣告听牌，出牌时确认
	NewestTile  *Tile // 最新摸的牌，听牌后只能打这张
	Points      int   // 累计得分，可以为负
}

func NewPlayerImage(userID, name string, seatIndex int) *PlayerImage {
	p := &PlayerImage{
		UserID:    userID,
		Name:      name,
		SeatIndex: seatIndex,
	}
	p.ResetRound()
	return p
}

// ResetRound 清空本局状态，保留累计得分
func (p *PlayerImage) ResetRound() {
	p.Tiles = make([]Tile, 0, 14)
	p.BonusTiles = make([]Tile, 0, 8)
	p.Melds = make([]Meld, 0, 4)
	p.DiscardPile = make([]Tile, 0, 24)
	p.Ting = false
	p.TingPending = false
	p.NewestTile = nil
}

// AddTile 牌加到手牌末尾，不排序
func (p *PlayerImage) AddTile(t Tile) {
	p.Tiles = append(p.Tiles, t)
}

// DrawTile 摸牌并记为最新的牌
func (p *PlayerImage) DrawTile(t Tile) {
	p.AddTile(t)
	p.SetNewestTile(t)
}

func (p *PlayerImage) SetNewestTile(t Tile) {
	tile := t
	p.NewestTile = &tile
}

// RemoveTile 移除一张指定的牌
func (p *PlayerImage) RemoveTile(t Tile) bool {
	for i, h := range p.Tiles {
		if h == t {
			p.Tiles = append(p.Tiles[:i], p.Tiles[i+1:]...)
			return true
		}
	}
	return false
}

// CountOf 手牌中某种牌的张数
func (p *PlayerImage) CountOf(t Tile) int {
	n := 0
	for _, h := range p.Tiles {
		if h == t {
			n++
		}
	}
	return n
}

func (p *PlayerImage) HasTile(t Tile) bool {
	return p.CountOf(t) > 0
}

// LastTile 手牌最后一张，补花链从这里判断
func (p *PlayerImage) LastTile() (Tile, bool) {
	if len(p.Tiles) == 0 {
		return 0, false
	}
	return p.Tiles[len(p.Tiles)-1], true
}

func (p *PlayerImage) SortHand() {
	SortTiles(p.Tiles)
}

// DiscardTile 打出一张牌进入牌河
func (p *PlayerImage) DiscardTile(t Tile) bool {
	if !p.RemoveTile(t) {
		return false
	}
	p.DiscardPile = append(p.DiscardPile, t)
	return true
}

// TakeBackDiscard 被鸣牌时从牌河末尾取回
func (p *PlayerImage) TakeBackDiscard(t Tile) bool {
	n := len(p.DiscardPile)
	if n == 0 || p.DiscardPile[n-1] != t {
		return false
	}
	p.DiscardPile = p.DiscardPile[:n-1]
	return true
}

func (p *PlayerImage) IsConcealed() bool {
	return len(p.Melds) == 0
}

func (p *PlayerImage) AddPoints(points int) {
	p.Points += points
}
