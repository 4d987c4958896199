package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/ace/internal/domain/model"
)

// Accepted season range.
const (
	minYear = 1992
	maxYear = 2100
)

func parseYear(s string) (int, error) {
	y, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || y < minYear || y > maxYear {
		return 0, fmt.Errorf("%w: invalid year %q", ErrBadRequest, s)
	}
	return y, nil
}

// queryYear reads ?year, falling back to def when absent.
func queryYear(r *http.Request, def int) (int, error) {
	s := r.URL.Query().Get("year")
	if s == "" {
		return def, nil
	}
	return parseYear(s)
}

// pathTeamYear reads the {team} and {year} path values.
func pathTeamYear(r *http.Request) (team, year int, err error) {
	team, err = model.ParseTeamKey(r.PathValue("team"))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	year, err = parseYear(r.PathValue("year"))
	if err != nil {
		return 0, 0, err
	}
	return team, year, nil
}

// parseTeams reads a comma separated list of team numbers or keys.
func parseTeams(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		n, err := model.ParseTeamKey(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty alliance", ErrBadRequest)
	}
	return out, nil
}
