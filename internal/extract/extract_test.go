package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/planmate/backend/internal/domain"
	"github.com/planmate/backend/internal/extract"
)

// TestExtract_FullUtterance verifies the canonical kitchen-sink utterance:
// every pattern matches and lands in its own field.
func TestExtract_FullUtterance(t *testing.T) {
	p := extract.Extract("我想去北京，2024年5月1日到2024年5月5日，预算5000元，2个人，喜欢历史文化，需要无障碍设施")

	assert.Equal(t, "北京", p.Destination)
	assert.Equal(t, "2024-5-1", p.StartDate)
	assert.Equal(t, "2024-5-5", p.EndDate)
	assert.Equal(t, 5000, p.Budget)
	assert.Equal(t, 2, p.Travelers)
	assert.Equal(t, "历史文化", p.Preferences)
	assert.Equal(t, "无障碍设施", p.SpecialRequirements)
}

// TestExtract_PartialUtterance verifies that a destination-budget-travelers
// utterance leaves the date fields absent so the prompt loop can ask for them.
func TestExtract_PartialUtterance(t *testing.T) {
	p := extract.Extract("我想去北京，预算5000元，2人")

	assert.Equal(t, "北京", p.Destination)
	assert.Empty(t, p.StartDate)
	assert.Empty(t, p.EndDate)
	assert.Equal(t, 5000, p.Budget)
	assert.Equal(t, 2, p.Travelers)
}

func TestExtract_DestinationTriggers(t *testing.T) {
	tests := []struct {
		name      string
		utterance string
		want      string
	}{
		{"want to go", "我想去上海玩", "上海玩"},
		{"will go", "我要去成都", "成都"},
		{"destination is", "目的地是杭州", "杭州"},
		{"bare go", "去西安，看兵马俑", "西安"},
		{"stops at delimiter", "想去三亚。还没定日期", "三亚"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := extract.Extract(tt.utterance)
			assert.Equal(t, tt.want, p.Destination)
		})
	}
}

func TestExtract_DateFormats(t *testing.T) {
	tests := []struct {
		name      string
		utterance string
		start     string
		end       string
	}{
		{"cjk markers", "2024年5月1日到2024年5月5日", "2024-5-1", "2024-5-5"},
		{"cjk day 号", "2024年5月1号至2024年5月5号", "2024-5-1", "2024-5-5"},
		{"dashes", "2024-05-01到2024-05-05", "2024-05-01", "2024-05-05"},
		{"slashes", "2024/5/1到2024/5/5", "2024-5-1", "2024-5-5"},
		{"dots", "2024.5.1至2024.5.5", "2024-5-1", "2024-5-5"},
		{"whitespace around connector", "2024年5月1日 到 2024年5月5日", "2024-5-1", "2024-5-5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := extract.Extract(tt.utterance)
			assert.Equal(t, tt.start, p.StartDate)
			assert.Equal(t, tt.end, p.EndDate)
		})
	}
}

// TestExtract_SingleDateIgnored verifies that a lone date without a range
// connector sets neither date field. Extraction only recognizes ranges.
func TestExtract_SingleDateIgnored(t *testing.T) {
	p := extract.Extract("2024年5月1日出发")

	assert.Empty(t, p.StartDate)
	assert.Empty(t, p.EndDate)
}

func TestExtract_BudgetUnits(t *testing.T) {
	tests := []struct {
		name      string
		utterance string
		want      int
	}{
		{"yuan", "预算5000元", 5000},
		{"kuai qian", "带了3000块钱", 3000},
		{"kuai", "大概2000块吧", 2000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := extract.Extract(tt.utterance)
			assert.Equal(t, tt.want, p.Budget)
		})
	}
}

func TestExtract_TravelerUnits(t *testing.T) {
	tests := []struct {
		name      string
		utterance string
		want      int
	}{
		{"ge ren", "我们2个人", 2},
		{"ren", "一共3人", 3},
		{"wei", "4位出行", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := extract.Extract(tt.utterance)
			assert.Equal(t, tt.want, p.Travelers)
		})
	}
}

// TestExtract_FullWidthDigits verifies that digits typed with a CJK input
// method are narrowed before the numeric patterns run.
func TestExtract_FullWidthDigits(t *testing.T) {
	p := extract.Extract("预算５０００元，２人")

	assert.Equal(t, 5000, p.Budget)
	assert.Equal(t, 2, p.Travelers)
}

func TestExtract_PreferencesAndSpecial(t *testing.T) {
	p := extract.Extract("偏好自然风光，特殊需求是轮椅通道")

	assert.Equal(t, "自然风光", p.Preferences)
	assert.Equal(t, "轮椅通道", p.SpecialRequirements)
}

// TestExtract_NoMatch verifies that an utterance with no recognizable
// pattern returns the zero partial rather than an error.
func TestExtract_NoMatch(t *testing.T) {
	p := extract.Extract("你好，今天天气怎么样？")

	assert.True(t, p.IsEmpty())
	assert.Equal(t, domain.PartialDemand{}, p)
}

// TestExtract_Deterministic verifies that extraction is pure: the same
// utterance always yields the same partial.
func TestExtract_Deterministic(t *testing.T) {
	const utterance = "我想去北京，预算5000元，2人"

	first := extract.Extract(utterance)
	second := extract.Extract(utterance)

	assert.Equal(t, first, second)
}

func TestLocations(t *testing.T) {
	plan := "第一天：上午参观【故宫】，下午前往【天坛】。\n第二天：再访【故宫】，晚上去【南锣鼓巷】。"

	got := extract.Locations(plan)

	assert.Equal(t, []string{"故宫", "天坛", "南锣鼓巷"}, got, "first appearance order, duplicates removed")
}

func TestLocations_NoMarkers(t *testing.T) {
	got := extract.Locations("第一天：上午参观故宫，下午前往天坛。")

	assert.Empty(t, got)
}

func TestLocations_EmptyMarker(t *testing.T) {
	got := extract.Locations("去【】看看，然后到【颐和园】。")

	assert.Equal(t, []string{"颐和园"}, got)
}
