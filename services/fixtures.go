package services

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"livescore-service/models"
)

// fixtureFile MATCHES_FILE 的格式
//
//	matches:
//	  - id: 1
//	    home: Manchester City
//	    away: Arsenal
type fixtureFile struct {
	Matches []struct {
		ID   int64  `yaml:"id"`
		Home string `yaml:"home"`
		Away string `yaml:"away"`
	} `yaml:"matches"`
}

// DefaultMatches 默认的示例比赛
func DefaultMatches() []*models.Match {
	return []*models.Match{
		models.NewMatch(1, "Manchester City", "Arsenal"),
		models.NewMatch(2, "Real Madrid", "Barcelona"),
		models.NewMatch(3, "Liverpool", "Chelsea"),
		models.NewMatch(4, "Arsenal", "Manchester United"),
		models.NewMatch(5, "Sevilla", "Barcelona"),
	}
}

// LoadMatchesFile 从 YAML 文件读取初始比赛; path 为空时返回默认比赛
func LoadMatchesFile(path string) ([]*models.Match, error) {
	if path == "" {
		return DefaultMatches(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read matches file: %w", err)
	}
	return ParseMatches(data)
}

// ParseMatches 解析 YAML 格式的比赛列表
func ParseMatches(data []byte) ([]*models.Match, error) {
	var file fixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse matches file: %w", err)
	}

	seen := make(map[int64]bool)
	matches := make([]*models.Match, 0, len(file.Matches))
	for i, f := range file.Matches {
		switch {
		case f.ID <= 0:
			return nil, fmt.Errorf("match #%d: id must be positive", i+1)
		case seen[f.ID]:
			return nil, fmt.Errorf("match #%d: duplicate id %d", i+1, f.ID)
		case f.Home == "" || f.Away == "":
			return nil, fmt.Errorf("match %d: home and away are required", f.ID)
		case f.Home == f.Away:
			return nil, fmt.Errorf("match %d: home and away must differ", f.ID)
		}
		seen[f.ID] = true
		matches = append(matches, models.NewMatch(f.ID, f.Home, f.Away))
	}
	return matches, nil
}
