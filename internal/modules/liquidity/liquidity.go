// Package liquidity scores how easily each position could be exited.
package liquidity

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/domain"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/pkg/formulas"
)

// Scoring parameters
const (
	ADVWindow            = 21
	SpreadProxyWindow    = 10
	MinSpread            = 0.0001
	MaxSpread            = 0.20
	DefaultADVFraction   = 0.10
	WideSpreadThreshold  = 0.015
	LowVolumeThreshold   = 100_000
	VeryIlliquidScore    = 3
	PortfolioAlertScore  = 5
	HighLiquidityScore   = 8
	MediumLiquidityScore = 5
)

// Buckets
const (
	High   = "High"
	Medium = "Medium"
	Low    = "Low"
)

// Alert severities
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// Position is one holding with its bar history.
type Position struct {
	Symbol string
	Shares float64
	Price  float64
	Bars   []domain.Bar
}

// PositionDetail is the per-position liquidity breakdown.
type PositionDetail struct {
	Symbol          string   `json:"symbol"`
	MarketValue     float64  `json:"market_value"`
	Weight          float64  `json:"weight"`
	AvgVolume       float64  `json:"avg_volume"`
	CurrentVolume   float64  `json:"current_volume"`
	Spread          *float64 `json:"spread_pct"`
	SpreadSource    string   `json:"spread_source"`
	VolumeScore     float64  `json:"volume_score"`
	SpreadScore     float64  `json:"spread_score"`
	Score           float64  `json:"liquidity_score"`
	Bucket          string   `json:"bucket"`
	LiquidationDays *int     `json:"liquidation_days"`
	CanLiquidate    bool     `json:"can_liquidate"`
	VolumeRatio     float64  `json:"volume_ratio"`
}

// Alert is a generated liquidity warning.
type Alert struct {
	Severity string `json:"severity"`
	Symbol   string `json:"symbol,omitempty"`
	Type     string `json:"type"`
	Message  string `json:"message"`
}

// Overview is the portfolio-level liquidity summary.
type Overview struct {
	Score              float64 `json:"liquidity_score"`
	Bucket             string  `json:"bucket"`
	TotalValue         float64 `json:"total_value"`
	Positions          int     `json:"positions"`
	MaxLiquidationDays int     `json:"max_liquidation_days"`
	IlliquidPositions  int     `json:"illiquid_positions"`
}

// Distribution is the share of market value per liquidity bucket.
type Distribution struct {
	High   float64 `json:"high"`
	Medium float64 `json:"medium"`
	Low    float64 `json:"low"`
}

// VolumeAnalysis summarizes traded volume across positions.
type VolumeAnalysis struct {
	AvgVolumeScore  float64 `json:"avg_volume_score"`
	AvgSpreadScore  float64 `json:"avg_spread_score"`
	LowVolumeCount  int     `json:"low_volume_count"`
	WideSpreadCount int     `json:"wide_spread_count"`
	MissingSpread   int     `json:"missing_spread_count"`
}

// Metrics is the full liquidity report.
type Metrics struct {
	Overview        Overview         `json:"overview"`
	Distribution    Distribution     `json:"distribution"`
	VolumeAnalysis  VolumeAnalysis   `json:"volume_analysis"`
	PositionDetails []PositionDetail `json:"position_details"`
	Alerts          []Alert          `json:"alerts"`
}

// Scorer computes liquidity metrics.
type Scorer struct {
	advFraction float64
	log         zerolog.Logger
}

// NewScorer creates a scorer. advFraction is the share of average daily volume that
// can be traded per day without moving the market (DefaultADVFraction when <= 0).
func NewScorer(advFraction float64, log zerolog.Logger) *Scorer {
	if advFraction <= 0 {
		advFraction = DefaultADVFraction
	}
	return &Scorer{
		advFraction: advFraction,
		log:         log.With().Str("component", "liquidity").Logger(),
	}
}

// VolumeScore maps average daily volume onto [1, 10].
func VolumeScore(adv float64) float64 {
	if adv <= 0 {
		return 1
	}
	return formulas.Clip(2*math.Log10(adv/1e5)+1, 1, 10)
}

// SpreadScore maps a fractional spread onto [1, 10]. Unknown spread scores 1.
func SpreadScore(spread *float64) float64 {
	if spread == nil {
		return 1
	}
	return formulas.Clip(10-400*(*spread), 1, 10)
}

// Bucket classifies a composite score.
func Bucket(score float64) string {
	switch {
	case score >= HighLiquidityScore:
		return High
	case score >= MediumLiquidityScore:
		return Medium
	default:
		return Low
	}
}

// Spread estimates the fractional bid/ask spread from the last bar's quotes, or
// the mean (high-low)/mid range of the last SpreadProxyWindow bars. The result is
// clipped to [MinSpread, MaxSpread]; nil means no estimate was possible.
func Spread(bars []domain.Bar) (*float64, string) {
	if len(bars) == 0 {
		return nil, "unavailable"
	}
	last := bars[len(bars)-1]
	if last.Bid != nil && last.Ask != nil {
		mid := (*last.Bid + *last.Ask) / 2
		if mid > 0 && *last.Ask >= *last.Bid {
			s := formulas.Clip((*last.Ask-*last.Bid)/mid, MinSpread, MaxSpread)
			return &s, "quote"
		}
	}

	start := len(bars) - SpreadProxyWindow
	if start < 0 {
		start = 0
	}
	var ranges []float64
	for _, b := range bars[start:] {
		mid := (b.High + b.Low) / 2
		if mid > 0 && b.High >= b.Low {
			ranges = append(ranges, (b.High-b.Low)/mid)
		}
	}
	if len(ranges) == 0 {
		return nil, "unavailable"
	}
	s := formulas.Clip(formulas.Mean(ranges), MinSpread, MaxSpread)
	return &s, "high_low_proxy"
}

// Analyze scores every position and the portfolio.
func (s *Scorer) Analyze(positions []Position) Metrics {
	m := Metrics{PositionDetails: make([]PositionDetail, 0, len(positions))}

	total := 0.0
	for _, p := range positions {
		total += math.Abs(p.Shares * p.Price)
	}

	var volScores, spreadScores []float64
	weightedScore := 0.0
	for _, p := range positions {
		d := s.position(p, total, &m)
		m.PositionDetails = append(m.PositionDetails, d)

		volScores = append(volScores, d.VolumeScore)
		spreadScores = append(spreadScores, d.SpreadScore)
		weightedScore += d.Weight * d.Score

		switch d.Bucket {
		case High:
			m.Distribution.High += d.Weight
		case Medium:
			m.Distribution.Medium += d.Weight
		default:
			m.Distribution.Low += d.Weight
		}
		if d.LiquidationDays != nil && *d.LiquidationDays > m.Overview.MaxLiquidationDays {
			m.Overview.MaxLiquidationDays = *d.LiquidationDays
		}
		if d.Score < VeryIlliquidScore {
			m.Overview.IlliquidPositions++
		}
	}

	sort.Slice(m.PositionDetails, func(i, j int) bool {
		return m.PositionDetails[i].Score < m.PositionDetails[j].Score
	})

	m.Overview.Positions = len(positions)
	m.Overview.TotalValue = total
	if total > 0 {
		m.Overview.Score = weightedScore
	} else if len(positions) > 0 {
		m.Overview.Score = formulas.Mean(scoresOf(m.PositionDetails))
	}
	m.Overview.Bucket = Bucket(m.Overview.Score)
	m.VolumeAnalysis.AvgVolumeScore = formulas.Mean(volScores)
	m.VolumeAnalysis.AvgSpreadScore = formulas.Mean(spreadScores)

	if len(positions) > 0 && m.Overview.Score < PortfolioAlertScore {
		m.Alerts = append(m.Alerts, Alert{
			Severity: SeverityHigh,
			Type:     "portfolio_illiquid",
			Message:  fmt.Sprintf("portfolio liquidity score %.1f is below %d", m.Overview.Score, PortfolioAlertScore),
		})
	}

	s.log.Debug().
		Int("positions", len(positions)).
		Float64("score", m.Overview.Score).
		Int("alerts", len(m.Alerts)).
		Msg("Liquidity analyzed")
	return m
}

func scoresOf(details []PositionDetail) []float64 {
	out := make([]float64, len(details))
	for i, d := range details {
		out[i] = d.Score
	}
	return out
}

func (s *Scorer) position(p Position, total float64, m *Metrics) PositionDetail {
	volumes := domain.PriceSeries{Symbol: p.Symbol, Bars: p.Bars}.Volumes()

	d := PositionDetail{
		Symbol:      p.Symbol,
		MarketValue: p.Shares * p.Price,
	}
	if total > 0 {
		d.Weight = math.Abs(d.MarketValue) / total
	}
	if len(volumes) > 0 {
		d.AvgVolume = formulas.TrailingMean(volumes, ADVWindow)
		d.CurrentVolume = volumes[len(volumes)-1]
	}
	if d.AvgVolume > 0 {
		d.VolumeRatio = d.CurrentVolume / d.AvgVolume
	}

	d.Spread, d.SpreadSource = Spread(p.Bars)
	d.VolumeScore = VolumeScore(d.AvgVolume)
	d.SpreadScore = SpreadScore(d.Spread)
	d.Score = 0.7*d.VolumeScore + 0.3*d.SpreadScore
	d.Bucket = Bucket(d.Score)

	if d.AvgVolume > 1 {
		days := int(math.Ceil(math.Abs(p.Shares) / (s.advFraction * d.AvgVolume)))
		if days < 1 {
			days = 1
		}
		d.LiquidationDays = &days
		d.CanLiquidate = true
	} else {
		m.Alerts = append(m.Alerts, Alert{
			Severity: SeverityHigh,
			Symbol:   p.Symbol,
			Type:     "cannot_liquidate",
			Message:  fmt.Sprintf("%s trades %.0f shares/day on average; position cannot be liquidated", p.Symbol, d.AvgVolume),
		})
	}

	switch {
	case d.AvgVolume <= 0:
		m.Alerts = append(m.Alerts, alert(SeverityHigh, p.Symbol, "zero_volume", "%s has no recorded volume", p.Symbol))
		m.VolumeAnalysis.LowVolumeCount++
	case d.AvgVolume < LowVolumeThreshold:
		m.Alerts = append(m.Alerts, alert(SeverityMedium, p.Symbol, "low_volume", "%s average volume %.0f is below %d", p.Symbol, d.AvgVolume, LowVolumeThreshold))
		m.VolumeAnalysis.LowVolumeCount++
	}

	if d.Spread == nil {
		m.Alerts = append(m.Alerts, alert(SeverityLow, p.Symbol, "missing_spread", "%s has no spread data; spread scored as worst case", p.Symbol))
		m.VolumeAnalysis.MissingSpread++
	} else if *d.Spread > WideSpreadThreshold {
		m.Alerts = append(m.Alerts, alert(SeverityMedium, p.Symbol, "wide_spread", "%s spread %.2f%% exceeds %.1f%%", p.Symbol, *d.Spread*100, WideSpreadThreshold*100))
		m.VolumeAnalysis.WideSpreadCount++
	}

	if d.Score < VeryIlliquidScore {
		m.Alerts = append(m.Alerts, alert(SeverityHigh, p.Symbol, "very_illiquid", "%s liquidity score %.1f is below %d", p.Symbol, d.Score, VeryIlliquidScore))
	}
	return d
}

func alert(severity, symbol, kind, format string, args ...interface{}) Alert {
	return Alert{Severity: severity, Symbol: symbol, Type: kind, Message: fmt.Sprintf(format, args...)}
}
