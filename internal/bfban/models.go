package bfban

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrNotImplemented = errors.New("game not implemented")
)

// WeaponStats is one weapon row from the stats source (camelCase wire format).
type WeaponStats struct {
	WeaponName         string  `json:"weaponName"`
	WeaponType         string  `json:"weaponType"`
	PlayedSec          int     `json:"playedSec"`
	Kills              int     `json:"kills"`
	KPM                float64 `json:"kpm"`
	Acc                float64 `json:"acc"`
	Fired              int     `json:"fired"`
	Hits               int     `json:"hits"`
	HeadShots          int     `json:"headShots"`
	HeadShotsKillRatio float64 `json:"headShotsKillRatio"`
	HitPerKills        float64 `json:"hitPerKills"`
}

func (w WeaponStats) String() string {
	return fmt.Sprintf("%s 种类: %s 击杀数: %d KPM: %g 准确度: %g%% 爆头率: %g%% 效率: %g",
		w.WeaponName, w.WeaponType, w.Kills, w.KPM, w.Acc, w.HeadShotsKillRatio, w.HitPerKills)
}

type VehicleStats struct {
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	ImageURL  string  `json:"imageUrl"`
	Kills     int     `json:"kills"`
	KPM       float64 `json:"kpm"`
	PlayedSec int     `json:"playedSec"`
	Rank      int     `json:"rank"`
	Destroy   int     `json:"destroy"`
}

func (v VehicleStats) String() string {
	return fmt.Sprintf("%s 种类: %s 击杀数: %d KPM: %g 摧毁: %d", v.Name, v.Type, v.Kills, v.KPM, v.Destroy)
}

// StatsSnapshot is the full career snapshot returned by /status/all/fast.
type StatsSnapshot struct {
	Name              string         `json:"name"`
	AvatarURL         string         `json:"avatarUrl"`
	PID               int64          `json:"pid"`
	PlayedSec         int            `json:"playedSec"`
	PlayedTime        string         `json:"playedTime"`
	Rank              int            `json:"rank"`
	Kills             int            `json:"kills"`
	Deaths            int            `json:"deaths"`
	KDR               float64        `json:"kdr"`
	HeadShots         int            `json:"headShots"`
	SPM               float64        `json:"spm"`
	KPM               float64        `json:"kpm"`
	Accuracy          float64        `json:"accuracy"`
	Wins              int            `json:"wins"`
	WinPercent        float64        `json:"winPercent"`
	Losses            int            `json:"losses"`
	Revives           int            `json:"revives"`
	RoundsPlayed      int            `json:"roundsPlayed"`
	HighestKillStreak int            `json:"highestKillStreak"`
	LongestHeadShot   int            `json:"longestHeadShot"`
	Platoon           string         `json:"platoon"`
	Weapons           []WeaponStats  `json:"weapons"`
	Vehicles          []VehicleStats `json:"vehicles"`
}

// StatsInfo renders the career digest embedded into a report description.
// Low-kill weapon/vehicle rows are dropped to keep the digest readable.
func (s *StatsSnapshot) StatsInfo() string {
	head := fmt.Sprintf("生涯数据:<br>等级: %d  游戏时间: %s  KPM: %g  KD: %g   KILLS: %d   SPM: %g  胜率: %g%%",
		s.Rank, s.PlayedTime, s.KPM, s.KDR, s.Kills, s.SPM, s.WinPercent)

	sort.Slice(s.Weapons, func(i, j int) bool { return s.Weapons[i].Kills > s.Weapons[j].Kills })
	sort.Slice(s.Vehicles, func(i, j int) bool { return s.Vehicles[i].Kills > s.Vehicles[j].Kills })

	limit := 60
	if s.Kills > 2000 {
		limit = 100
	}

	var weapons []string
	for _, w := range s.Weapons {
		if w.Kills > limit {
			weapons = append(weapons, w.String())
		}
	}
	var vehicles []string
	for _, v := range s.Vehicles {
		if v.Kills > 100 {
			vehicles = append(vehicles, v.String())
		}
	}

	weaponInfo := strings.Join(weapons, "<br>")
	if weaponInfo == "" {
		weaponInfo = "数据不足"
	}
	vehicleInfo := strings.Join(vehicles, "<br>")
	if vehicleInfo == "" {
		vehicleInfo = "数据不足"
	}

	return fmt.Sprintf("%s<br>武器数据：%s<br>载具数据：%s", head, weaponInfo, vehicleInfo)
}

// Captcha is a server-issued challenge: opaque hash plus renderable SVG markup.
type Captcha struct {
	Hash    string `json:"hash"`
	Content string `json:"content"`
}

// ReportBody is the submission payload of POST /api/player/report.
type ReportBody struct {
	Data           ReportData `json:"data"`
	EncryptCaptcha string     `json:"encryptCaptcha"`
	Captcha        string     `json:"captcha"`
}

type ReportData struct {
	Game         string   `json:"game"`
	OriginName   string   `json:"originName"`
	CheatMethods []string `json:"cheatMethods"`
	VideoLink    string   `json:"videoLink"`
	Description  string   `json:"description"`
}

// Case status labels keyed by the upstream status code.
var statusLabels = map[int]string{
	-1: "未被举报",
	0:  "未处理",
	1:  "石锤",
	2:  "待自证",
	3:  "MOSS自证",
	4:  "无效举报",
	5:  "讨论中",
	6:  "即将石锤",
	7:  "查询失败",
	8:  "刷枪",
	9:  "申诉中",
}

const (
	StatusNotReported = "未被举报"
	StatusQueryFailed = "查询失败"
	StatusTimeout     = "查询超时"
)

// StatusLabel maps an upstream status code to its display label.
func StatusLabel(code int) string {
	if label, ok := statusLabels[code]; ok {
		return label
	}
	return StatusQueryFailed
}

// ConfirmedCheater reports whether a case status makes a new report pointless.
func ConfirmedCheater(label string) bool {
	return label == "石锤" || label == "即将石锤"
}

// CleanStatus reports whether a label carries no case worth linking to.
func CleanStatus(label string) bool {
	return label == StatusNotReported || label == StatusQueryFailed || label == StatusTimeout
}

// CaseURL is the public case page for a persona id.
func CaseURL(pid int64) string {
	return fmt.Sprintf("https://bfban.gametools.network/player/%d", pid)
}
