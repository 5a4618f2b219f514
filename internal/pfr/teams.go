package pfr

import (
	"fmt"
	"strings"
)

// Team is one franchise code as it appears in the Tm column.
// PFR keeps historical codes (RAI, PHO, STL, ...) on older seasons.
type Team struct {
	Abbr  string // e.g. "NWE"
	Path  string // e.g. "nwe" (https://www.pro-football-reference.com/teams/{Path}/...)
	Name  string
	First int // first season under this code; 0 = open
	Last  int // last season under this code; 0 = current
}

func (t Team) activeIn(season int) bool {
	return (t.First == 0 || season >= t.First) && (t.Last == 0 || season <= t.Last)
}

// Multi-team rows carry these instead of a franchise code.
var multiTeam = map[string]string{
	"2TM": "Two teams",
	"3TM": "Three teams",
	"4TM": "Four teams",
	"TOT": "Multiple teams",
}

// AllTeams returns every code PFR has used on rushing pages since 1990.
func AllTeams() []Team {
	return []Team{
		{Abbr: "ARI", Path: "crd", Name: "Arizona Cardinals", First: 1994},
		{Abbr: "PHO", Path: "crd", Name: "Phoenix Cardinals", First: 1988, Last: 1993},
		{Abbr: "ATL", Path: "atl", Name: "Atlanta Falcons"},
		{Abbr: "BAL", Path: "rav", Name: "Baltimore Ravens", First: 1996},
		{Abbr: "BUF", Path: "buf", Name: "Buffalo Bills"},
		{Abbr: "CAR", Path: "car", Name: "Carolina Panthers", First: 1995},
		{Abbr: "CHI", Path: "chi", Name: "Chicago Bears"},
		{Abbr: "CIN", Path: "cin", Name: "Cincinnati Bengals"},
		{Abbr: "CLE", Path: "cle", Name: "Cleveland Browns"},
		{Abbr: "DAL", Path: "dal", Name: "Dallas Cowboys"},
		{Abbr: "DEN", Path: "den", Name: "Denver Broncos"},
		{Abbr: "DET", Path: "det", Name: "Detroit Lions"},
		{Abbr: "GNB", Path: "gnb", Name: "Green Bay Packers"},
		{Abbr: "HOU", Path: "oti", Name: "Houston Oilers", Last: 1996},
		{Abbr: "HOU", Path: "htx", Name: "Houston Texans", First: 2002},
		{Abbr: "IND", Path: "clt", Name: "Indianapolis Colts"},
		{Abbr: "JAX", Path: "jax", Name: "Jacksonville Jaguars", First: 1995},
		{Abbr: "KAN", Path: "kan", Name: "Kansas City Chiefs"},
		{Abbr: "LVR", Path: "rai", Name: "Las Vegas Raiders", First: 2020},
		{Abbr: "OAK", Path: "rai", Name: "Oakland Raiders", First: 1995, Last: 2019},
		{Abbr: "RAI", Path: "rai", Name: "Los Angeles Raiders", Last: 1994},
		{Abbr: "LAC", Path: "sdg", Name: "Los Angeles Chargers", First: 2017},
		{Abbr: "SDG", Path: "sdg", Name: "San Diego Chargers", Last: 2016},
		{Abbr: "LAR", Path: "ram", Name: "Los Angeles Rams", First: 2016},
		{Abbr: "STL", Path: "ram", Name: "St. Louis Rams", First: 1995, Last: 2015},
		{Abbr: "RAM", Path: "ram", Name: "Los Angeles Rams", Last: 1994},
		{Abbr: "MIA", Path: "mia", Name: "Miami Dolphins"},
		{Abbr: "MIN", Path: "min", Name: "Minnesota Vikings"},
		{Abbr: "NWE", Path: "nwe", Name: "New England Patriots"},
		{Abbr: "NOR", Path: "nor", Name: "New Orleans Saints"},
		{Abbr: "NYG", Path: "nyg", Name: "New York Giants"},
		{Abbr: "NYJ", Path: "nyj", Name: "New York Jets"},
		{Abbr: "PHI", Path: "phi", Name: "Philadelphia Eagles"},
		{Abbr: "PIT", Path: "pit", Name: "Pittsburgh Steelers"},
		{Abbr: "SFO", Path: "sfo", Name: "San Francisco 49ers"},
		{Abbr: "SEA", Path: "sea", Name: "Seattle Seahawks"},
		{Abbr: "TAM", Path: "tam", Name: "Tampa Bay Buccaneers"},
		{Abbr: "TEN", Path: "oti", Name: "Tennessee Titans", First: 1999},
		{Abbr: "TEN", Path: "oti", Name: "Tennessee Oilers", First: 1997, Last: 1998},
		{Abbr: "WAS", Path: "was", Name: "Washington Commanders", First: 2022},
		{Abbr: "WAS", Path: "was", Name: "Washington Football Team", First: 2020, Last: 2021},
		{Abbr: "WAS", Path: "was", Name: "Washington Redskins", Last: 2019},
	}
}

// LookupTeam finds the team that used abbr in the given season.
func LookupTeam(abbr string, season int) (Team, bool) {
	a := strings.ToUpper(strings.TrimSpace(abbr))
	for _, t := range AllTeams() {
		if t.Abbr == a && t.activeIn(season) {
			return t, true
		}
	}
	return Team{}, false
}

// TeamName is the display name for a Tm code; unknown codes come back as-is.
func TeamName(abbr string, season int) string {
	if n, ok := multiTeam[strings.ToUpper(strings.TrimSpace(abbr))]; ok {
		return n
	}
	if t, ok := LookupTeam(abbr, season); ok {
		return t.Name
	}
	return abbr
}

// TeamURL is the franchise season page for a Tm code on the public site.
func TeamURL(abbr string, season int) (string, bool) {
	t, ok := LookupTeam(abbr, season)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%s/teams/%s/%d.htm", BaseURL, t.Path, season), true
}
