package ml

// Classifier 二分类模型，输出正类（欺诈）概率
type Classifier interface {
	PredictProba(features []float64) (float64, error)
	// InputWidth 模型要求的输入维度
	InputWidth() int
}
