// Package mood holds the fixed mood palette and computes the emotional
// compatibility score (ECS) between a POI's tag vector and the user's moods.
package mood

// weights is the process-global mood table. Each mood maps to a sparse tag
// vector; positive weights favor a tag, negative weights penalize it.
// Never mutated after init.
var weights = map[string]map[string]float64{
	"Yên tĩnh & Thư giãn": {
		"peaceful": 1.0, "scenic": 0.8, "seaside": 0.7,
		"lively": -0.9, "festive": -0.8, "touristy": -0.7,
	},
	"Náo nhiệt & Xã hội": {
		"lively": 1.0, "festive": 0.8, "social": 0.7, "local": 0.4,
		"peaceful": -0.8,
	},
	"Lãng mạn & Riêng tư": {
		"romantic": 1.0, "scenic": 0.7, "peaceful": 0.6,
		"touristy": -0.6, "lively": -0.5,
	},
	"Điểm thu hút khách du lịch": {
		"touristy": 1.0, "famous": 0.8, "scenic": 0.5, "historical": 0.4,
	},
	"Mạo hiểm & Thú vị": {
		"adventurous": 1.0, "exciting": 0.8, "natural": 0.5,
		"peaceful": -0.4,
	},
	"Gia đình & Thoải mái": {
		"family": 1.0, "comfortable": 0.7, "peaceful": 0.4,
		"adventurous": -0.5,
	},
	"Hiện đại & Sáng tạo": {
		"modern": 1.0, "creative": 0.8, "artistic": 0.6,
		"historical": -0.3,
	},
	"Tâm linh & Tôn giáo": {
		"spiritual": 1.0, "historical": 0.6, "peaceful": 0.5,
		"modern": -1.0, "lively": -0.4,
	},
	"Địa phương & Đích thực": {
		"local": 1.0, "authentic": 0.9, "traditional": 0.5,
		"touristy": -0.8, "modern": -0.3,
	},
	"Cảnh quan thiên nhiên": {
		"natural": 1.0, "scenic": 0.9, "peaceful": 0.5,
		"modern": -0.5,
	},
	"Lễ hội & Sôi động": {
		"festive": 1.0, "lively": 0.9, "local": 0.4,
		"peaceful": -0.7,
	},
	"Ven biển & Nghỉ dưỡng": {
		"seaside": 1.0, "relaxing": 0.8, "scenic": 0.7, "peaceful": 0.5,
	},
}

// labelOrder fixes the iteration order used for round-robin mood assignment
// across days and slots.
var labelOrder = []string{
	"Yên tĩnh & Thư giãn",
	"Náo nhiệt & Xã hội",
	"Lãng mạn & Riêng tư",
	"Điểm thu hút khách du lịch",
	"Mạo hiểm & Thú vị",
	"Gia đình & Thoải mái",
	"Hiện đại & Sáng tạo",
	"Tâm linh & Tôn giáo",
	"Địa phương & Đích thực",
	"Cảnh quan thiên nhiên",
	"Lễ hội & Sôi động",
	"Ven biển & Nghỉ dưỡng",
}

// Labels returns the twelve supported mood labels in palette order.
func Labels() []string {
	return append([]string(nil), labelOrder...)
}

// Known reports whether a label is part of the mood palette.
func Known(label string) bool {
	_, ok := weights[label]
	return ok
}

// ScoreOne computes the dot product of the POI's tag vector with one mood's
// weight vector. Unknown moods and missing tags contribute zero.
func ScoreOne(tags map[string]float64, label string) float64 {
	w := weights[label]
	var score float64
	for tag, weight := range w {
		if v, ok := tags[tag]; ok {
			score += weight * v
		}
	}
	return score
}

// Score is the ECS: the maximum of the per-mood dot products, so each POI
// benefits from whichever requested mood fits it best. Scores may be
// negative. An empty mood list degenerates to zero.
func Score(tags map[string]float64, labels []string) float64 {
	if len(labels) == 0 {
		return 0
	}
	best := ScoreOne(tags, labels[0])
	for _, label := range labels[1:] {
		if s := ScoreOne(tags, label); s > best {
			best = s
		}
	}
	return best
}
