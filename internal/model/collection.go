package model

const (
	MetricDotProduct = "dot_product"
	MetricCosine     = "cosine"
	MetricEuclidean  = "euclidean"
)

type VectorCollection struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Ctime     int64  `json:"ctime"`
}
