package domain

import "math"

// PackageDefaults 默认包裹尺寸公式的参数：
// 重量 = max(DefaultWeightKg, 件数 * WeightPerItemKg)
// 高度 = HeightBaseCm + (ceil(件数/2) - 1) * HeightPerPairCm，每两件叠一层
type PackageDefaults struct {
	DefaultWeightKg float64
	WeightPerItemKg float64
	LengthCm        float64
	BreadthCm       float64
	HeightBaseCm    float64
	HeightPerPairCm float64
}

// DefaultPackageDefaults 未配置时使用的常量
var DefaultPackageDefaults = PackageDefaults{
	DefaultWeightKg: 0.5,
	WeightPerItemKg: 0.5,
	LengthCm:        30,
	BreadthCm:       25,
	HeightBaseCm:    5,
	HeightPerPairCm: 5,
}

// PackageDimensions 单位 kg / cm
type PackageDimensions struct {
	WeightKg  float64
	LengthCm  float64
	BreadthCm float64
	HeightCm  float64
}

// DimensionOverrides 调用方按字段覆盖，nil 表示使用默认公式
type DimensionOverrides struct {
	WeightKg  *float64
	LengthCm  *float64
	BreadthCm *float64
	HeightCm  *float64
}

// Compute 根据件数计算包裹尺寸，再应用覆盖值
func (d PackageDefaults) Compute(itemCount int, o DimensionOverrides) PackageDimensions {
	if itemCount < 1 {
		itemCount = 1
	}
	layers := int(math.Ceil(float64(itemCount) / 2))
	dims := PackageDimensions{
		WeightKg:  math.Max(d.DefaultWeightKg, float64(itemCount)*d.WeightPerItemKg),
		LengthCm:  d.LengthCm,
		BreadthCm: d.BreadthCm,
		HeightCm:  d.HeightBaseCm + float64(layers-1)*d.HeightPerPairCm,
	}
	if o.WeightKg != nil {
		dims.WeightKg = *o.WeightKg
	}
	if o.LengthCm != nil {
		dims.LengthCm = *o.LengthCm
	}
	if o.BreadthCm != nil {
		dims.BreadthCm = *o.BreadthCm
	}
	if o.HeightCm != nil {
		dims.HeightCm = *o.HeightCm
	}
	return dims
}
