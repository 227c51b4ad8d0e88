package signals

import (
	"math"
	"sort"

	"github.com/sells-group/market-scan/internal/model"
)

// highSimilarityThreshold is the pairwise cosine above which two titles
// are merged by the cluster-count heuristic. The heuristic is greedy and
// order-dependent; downstream consumers are calibrated to its output, so
// it must not be replaced with real clustering.
const highSimilarityThreshold = 0.6

const maxTopPhrases = 10

type tfidfVector map[string]float64

// buildTFIDF vectorizes each token list against the whole input set.
// IDF = ln(N / (1 + document frequency)); TF = count / document length.
func buildTFIDF(docs [][]string) []tfidfVector {
	n := float64(len(docs))

	df := make(map[string]int)
	for _, tokens := range docs {
		seen := make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				df[t]++
			}
		}
	}

	vectors := make([]tfidfVector, len(docs))
	for i, tokens := range docs {
		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		vec := make(tfidfVector, len(tf))
		for term, count := range tf {
			idf := math.Log(n / float64(1+df[term]))
			vec[term] = (float64(count) / float64(len(tokens))) * idf
		}
		vectors[i] = vec
	}
	return vectors
}

func cosine(a, b tfidfVector) float64 {
	var dot, normA, normB float64
	for term, va := range a {
		normA += va * va
		dot += va * b[term]
	}
	for _, vb := range b {
		normB += vb * vb
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

// ComputeTitleSameness measures how interchangeable the sampled titles are:
// average pairwise TF-IDF cosine, repeated 2-/3-word phrases, and a coarse
// cluster-count heterogeneity indicator. O(N² · title length); the caller
// is responsible for bounding N.
func ComputeTitleSameness(listings []model.Listing) model.TitleSameness {
	if len(listings) == 0 {
		return model.TitleSameness{TopPhrases: []model.TopPhrase{}}
	}
	if len(listings) == 1 {
		// A singleton is maximally self-similar.
		return model.TitleSameness{AverageSimilarity: 1, TopPhrases: []model.TopPhrase{}, ClusterCount: 1}
	}

	tokenized := make([][]string, len(listings))
	for i, l := range listings {
		tokenized[i] = Tokenize(l.Title)
	}
	vectors := buildTFIDF(tokenized)

	var totalSim float64
	pairs := 0
	for i := range vectors {
		for j := i + 1; j < len(vectors); j++ {
			totalSim += cosine(vectors[i], vectors[j])
			pairs++
		}
	}
	avgSim := 0.0
	if pairs > 0 {
		avgSim = Round(totalSim/float64(pairs), 4)
	}

	return model.TitleSameness{
		AverageSimilarity: avgSim,
		TopPhrases:        topPhrases(tokenized, vectors),
		ClusterCount:      clusterCount(vectors),
	}
}

// topPhrases extracts 2- and 3-grams (stop words removed), keeps phrases
// seen at least twice, and ranks the top 10 by count with their
// accumulated TF-IDF mass.
func topPhrases(tokenized [][]string, vectors []tfidfVector) []model.TopPhrase {
	phraseCount := make(map[string]int)
	termScore := make(map[string]float64)

	for i, tokens := range tokenized {
		filtered := make([]string, 0, len(tokens))
		for _, t := range tokens {
			if !IsStopWord(t) {
				filtered = append(filtered, t)
			}
		}
		for _, phrase := range NGrams(filtered, 2) {
			phraseCount[phrase]++
		}
		for _, phrase := range NGrams(filtered, 3) {
			phraseCount[phrase]++
		}
		for term, score := range vectors[i] {
			if !IsStopWord(term) {
				termScore[term] += score
			}
		}
	}

	ranked := make([]model.TopPhrase, 0, len(phraseCount))
	for phrase, count := range phraseCount {
		if count >= 2 {
			ranked = append(ranked, model.TopPhrase{
				Phrase: phrase,
				Count:  count,
				Score:  Round(termScore[phrase], 4),
			})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Phrase < ranked[j].Phrase
	})
	if len(ranked) > maxTopPhrases {
		ranked = ranked[:maxTopPhrases]
	}
	return ranked
}

// clusterCount starts from N singletons and decrements once per title that
// has at least one high-similarity partner, floored at 1.
func clusterCount(vectors []tfidfVector) int {
	clusters := len(vectors)
	for i := range vectors {
		for j := i + 1; j < len(vectors); j++ {
			if cosine(vectors[i], vectors[j]) > highSimilarityThreshold {
				if clusters > 1 {
					clusters--
				}
				break
			}
		}
	}
	return clusters
}
