package distmatrix

import "fmt"

const absentSentinel = 1.0001

// SpDist is the packed triangular species-distance matrix: one entry per
// species pair (i<j) addressed as j*(j-1)/2+i, tracking both the
// across-loci mean and the within-locus minimum (itself averaged across
// loci once Finalise runs), plus a per-pair observation count. Ported from
// original_source/lib/distance_matrix.c's new_spdist_matrix family.
type SpDist struct {
	NSpecies int
	Mean     []float64
	Min      []float64
	Count    []int
	Present  []bool
	NMissing int

	finalised bool
}

// NewSp allocates a packed species-distance matrix for nSpecies species,
// zeroed.
func NewSp(nSpecies int) *SpDist {
	size := nSpecies * (nSpecies - 1) / 2
	return &SpDist{
		NSpecies: nSpecies,
		Mean:     make([]float64, size),
		Min:      make([]float64, size),
		Count:    make([]int, size),
		Present:  make([]bool, nSpecies),
	}
}

func (s *SpDist) index(i, j int) int {
	if i == j {
		panic("distmatrix: SpDist index called with i==j")
	}
	if i < j {
		i, j = j, i
	}
	return i*(i-1)/2 + j
}

// ZeroAll resets mean, min and count for every pair, and clears
// presence/finalisation state.
func (s *SpDist) ZeroAll() {
	for k := range s.Mean {
		s.Mean[k] = 0
		s.Min[k] = 0
		s.Count[k] = 0
	}
	for i := range s.Present {
		s.Present[i] = false
	}
	s.NMissing = 0
	s.finalised = false
}

// Accumulate folds one observation of the distance between species i and
// j (i != j) into the running mean/min/count for that pair, as collected
// per-locus before Finalise rescales everything.
func (s *SpDist) Accumulate(i, j int, d float64) {
	k := s.index(i, j)
	s.Mean[k] += d
	if s.Count[k] == 0 || d < s.Min[k] {
		s.Min[k] = d
	}
	s.Count[k]++
	s.Present[i] = true
	s.Present[j] = true
}

// Finalise averages the accumulated mean and min over their observation
// counts, then rescales every present pair so the maximum observed value
// becomes 1, and sets every absent pair (count == 0) to the sentinel
// 1.0001. This mirrors finalise_spdist_matrix's two-pass structure:
// averaging and max-tracking happen together in the first pass (a pair
// with zero observations never participates in the max), and the rescale
// happens only in the second pass, after the true maximum is known.
func (s *SpDist) Finalise() {
	maxMean, maxMin := 0.0, 0.0
	any := false
	for k, c := range s.Count {
		if c == 0 {
			continue
		}
		s.Mean[k] /= float64(c)
		s.Min[k] /= float64(c)
		if !any || s.Mean[k] > maxMean {
			maxMean = s.Mean[k]
		}
		if !any || s.Min[k] > maxMin {
			maxMin = s.Min[k]
		}
		any = true
	}
	if maxMean == 0 {
		maxMean = 1
	}
	if maxMin == 0 {
		maxMin = 1
	}
	s.NMissing = 0
	for k, c := range s.Count {
		if c == 0 {
			s.Mean[k] = absentSentinel
			s.Min[k] = absentSentinel
			s.NMissing++
			continue
		}
		s.Mean[k] /= maxMean
		s.Min[k] /= maxMin
	}
	s.finalised = true
}

// CompleteMissingFromGlobal fills every absent pair in s (count == 0) from
// the corresponding pair of an already-finalised global SpDist covering
// the same species set, used when a per-locus matrix has gaps a
// multi-locus summary can patch.
func (s *SpDist) CompleteMissingFromGlobal(global *SpDist) error {
	if global.NSpecies != s.NSpecies {
		return fmt.Errorf("distmatrix: CompleteMissingFromGlobal species count mismatch: %d vs %d", s.NSpecies, global.NSpecies)
	}
	for k := range s.Count {
		if s.Count[k] == 0 {
			s.Mean[k] = global.Mean[k]
			s.Min[k] = global.Min[k]
		}
	}
	return nil
}

// CopyToSquareUpper copies this packed matrix's pairwise values into the
// upper triangle of dst (a square Matrix over the same species set), using
// the finalised mean when useMeans is true and the finalised min
// otherwise.
func (s *SpDist) CopyToSquareUpper(dst *Matrix, useMeans bool) error {
	if dst.Size != s.NSpecies {
		return fmt.Errorf("distmatrix: CopyToSquareUpper size mismatch: %d vs %d", dst.Size, s.NSpecies)
	}
	for j := 0; j < s.NSpecies; j++ {
		for i := 0; i < j; i++ {
			k := s.index(i, j)
			v := s.Min[k]
			if useMeans {
				v = s.Mean[k]
			}
			dst.D[i][j] = v
		}
	}
	return nil
}

// UpdateFromOther adds every mean[k]/min[k] observation from local into
// the running totals of s (treated as a global accumulator) and
// increments s's count, mirroring update_species_dists_from_spdist. local
// must not yet be finalised (its mean/min are still per-locus sums, not
// averages).
func (s *SpDist) UpdateFromOther(local *SpDist) error {
	if local.NSpecies != s.NSpecies {
		return fmt.Errorf("distmatrix: UpdateFromOther species count mismatch: %d vs %d", s.NSpecies, local.NSpecies)
	}
	for k := range s.Count {
		if local.Count[k] == 0 {
			continue
		}
		s.Mean[k] += local.Mean[k]
		s.Min[k] += local.Min[k]
		s.Count[k] += local.Count[k]
	}
	for i := range s.Present {
		if local.Present[i] {
			s.Present[i] = true
		}
	}
	return nil
}
