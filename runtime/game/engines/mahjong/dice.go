package mahjong

import "math/rand"

// CalculateDiceMultiplier 两颗骰子相同则本局翻倍，差为 3 则下一局翻倍，两个条件互相独立
func CalculateDiceMultiplier(dice []int) (current, next int) {
	if len(dice) != 2 {
		return 1, 1
	}
	current, next = 1, 1
	if dice[0] == dice[1] {
		current = 2
	}
	diff := dice[0] - dice[1]
	if diff == 3 || diff == -3 {
		next = 2
	}
	return current, next
}

// RandomDice 掷两颗 1-6 的骰子
func RandomDice(rng *rand.Rand) []int {
	return []int{rng.Intn(6) + 1, rng.Intn(6) + 1}
}
