package service

import "math"

// 金额与百分比在校验和计算时统一换算为整数“分”，避免浮点比较误差。
// 存储层沿用 decimal(10,2)，JSON 传输为保留2位小数的数字。

// ToCents 将金额/百分比换算为整数分
// 第二个返回值为 false 表示该值超过2位小数精度
func ToCents(v float64) (int64, bool) {
	scaled := v * 100
	rounded := math.Round(scaled)
	if math.Abs(scaled-rounded) > 1e-4 {
		return 0, false
	}
	return int64(rounded), true
}

// FromCents 将整数分还原为金额
func FromCents(c int64) float64 {
	return float64(c) / 100
}

// ShareCents 按百分比（分）计算分摊金额（分），对 0.5 分进位（round half up）
// 余数不在责任人之间重新分配：各分摊金额之和与总额的偏差最多为 0.005 × 人数，属接受范围
func ShareCents(amountCents, pctCents int64) int64 {
	return (amountCents*pctCents + 5000) / 10000
}
