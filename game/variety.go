package game

import "sync"

const varietyWindow = 10

// varietyTracker remembers recent demographics so new games can steer away
// from them. Best-effort and in-process only.
type varietyTracker struct {
	mu      sync.Mutex
	systems []string
	ages    []int
	genders []string
	count   int
}

func (t *varietyTracker) Track(g *GameData) {
	if g == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count++
	if g.BodySystem != "" {
		t.systems = appendCapped(t.systems, g.BodySystem)
	}
	if g.Age > 0 {
		t.ages = appendCapped(t.ages, g.Age)
	}
	if g.Gender != "" {
		t.genders = appendCapped(t.genders, g.Gender)
	}
}

func appendCapped[T any](s []T, v T) []T {
	s = append(s, v)
	if len(s) > varietyWindow {
		s = s[1:]
	}
	return s
}

// RecentSystems returns up to n most recently used body systems.
func (t *varietyTracker) RecentSystems(n int) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.systems) < n {
		n = len(t.systems)
	}
	out := make([]string, n)
	copy(out, t.systems[len(t.systems)-n:])
	return out
}

// VarietyStats is the monitoring snapshot served by the variety endpoint.
type VarietyStats struct {
	TotalGames    int      `json:"totalGames"`
	UniqueSystems int      `json:"uniqueSystemsUsed"`
	UniqueAges    int      `json:"uniqueAgesUsed"`
	UniqueGenders int      `json:"uniqueGendersUsed"`
	RecentSystems []string `json:"recentSystems"`
	VarietyScore  int      `json:"varietyScore"`
}

func (t *varietyTracker) Stats() VarietyStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	recent := t.systems
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	out := VarietyStats{
		TotalGames:    t.count,
		UniqueSystems: uniqueCount(t.systems),
		UniqueAges:    uniqueCount(t.ages),
		UniqueGenders: uniqueCount(t.genders),
		RecentSystems: append([]string(nil), recent...),
		VarietyScore:  t.scoreLocked(),
	}
	return out
}

// scoreLocked rates recent diversity 0-100: body-system spread weighs 30,
// ages 25, genders 25 and the diversity of the last five systems 20.
func (t *varietyTracker) scoreLocked() int {
	if t.count == 0 {
		return 100
	}
	window := t.count
	if window > varietyWindow {
		window = varietyWindow
	}
	systemVariety := float64(uniqueCount(t.systems)) / float64(window) * 30
	ageVariety := float64(uniqueCount(t.ages)) / float64(window) * 25
	genderWindow := t.count
	if genderWindow > 2 {
		genderWindow = 2
	}
	genderVariety := float64(uniqueCount(t.genders)) / float64(genderWindow) * 25
	recentDiversity := 20.0
	if len(t.systems) > 3 {
		last := t.systems
		if len(last) > 5 {
			last = last[len(last)-5:]
		}
		recentDiversity = float64(uniqueCount(last)) / 5 * 20
	}
	score := int(systemVariety + ageVariety + genderVariety + recentDiversity + 0.5)
	if score > 100 {
		score = 100
	}
	return score
}

func uniqueCount[T comparable](s []T) int {
	seen := make(map[T]struct{}, len(s))
	for _, v := range s {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// suggestedSystems filters out the most recent picks and proposes the rest.
func (t *varietyTracker) suggestedSystems(n int) []string {
	avoid := make(map[string]struct{})
	for _, s := range t.RecentSystems(3) {
		avoid[s] = struct{}{}
	}
	var out []string
	for _, s := range seedBodySystems {
		if _, skip := avoid[s]; skip {
			continue
		}
		out = append(out, s)
		if len(out) == n {
			break
		}
	}
	return out
}
