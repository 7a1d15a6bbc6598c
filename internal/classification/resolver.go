package classification

import "HeroScanner/internal/domain"

// resolve applies the priority rule to the running scores. Category ties go to the
// first declared category; a category beats Personal on an equal score.
func resolve(categories []Category, scores []int, personal int) (domain.Classification, bool) {
	best, bestScore := -1, 0
	for i, v := range scores {
		if v > bestScore {
			best, bestScore = i, v
		}
	}

	if best >= 0 && bestScore >= personal {
		return categories[best].Classification, true
	}
	if personal > 0 {
		return domain.Personal, true
	}
	return domain.Unclassified, false
}
