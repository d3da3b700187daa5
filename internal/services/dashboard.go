package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/clinreach/clinreach/internal/models"
	"github.com/clinreach/clinreach/pkg/response"
)

// DashboardService aggregates recruitment metrics: pool size, the
// recruitment funnel with conversion rates, and demographic analytics.
type DashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

type DashboardMetrics struct {
	TotalMembers         int64      `json:"total_members"`
	ActiveMembers        int64      `json:"active_members"`
	TotalStudies         int64      `json:"total_studies"`
	ActiveStudies        int64      `json:"active_studies"`
	TotalApplications    int64      `json:"total_applications"`
	PendingApplications  int64      `json:"pending_applications"`
	SuccessfulPlacements int64      `json:"successful_placements"`
	NewMembers30Days     int64      `json:"new_members_30_days"`
	Submissions7Days     int64      `json:"submissions_7_days"`
	AvgReviewDays        float64    `json:"avg_review_days"`
	TopStudies           []TopStudy `json:"top_studies"`
}

// TopStudy is one row of the most-applied-to active studies.
type TopStudy struct {
	StudyID      string `json:"study_id"`
	Title        string `json:"title"`
	Applications int64  `json:"applications"`
}

// FunnelCounts holds the per-status tallies feeding the conversion rates.
// All application counts are restricted to applications belonging to
// members that are still active.
type FunnelCounts struct {
	TotalMembers      int64 `json:"total_members"`
	TotalApplications int64 `json:"total_applications"`
	InReview          int64 `json:"in_review"`
	InScreening       int64 `json:"in_screening"`
	Interviews        int64 `json:"interviews"`
	Approved          int64 `json:"approved"`
	Completed         int64 `json:"completed"`
}

// ConversionRates are percentages formatted to two decimals, e.g. "50.00".
// application_rate is a ratio against the member pool; every other rate
// is a ratio against total applications.
type ConversionRates struct {
	ApplicationRate string `json:"application_rate"`
	ReviewRate      string `json:"review_rate"`
	ScreeningRate   string `json:"screening_rate"`
	InterviewRate   string `json:"interview_rate"`
	ApprovalRate    string `json:"approval_rate"`
	CompletionRate  string `json:"completion_rate"`
}

type FunnelResponse struct {
	StudyID     string          `json:"study_id,omitempty"`
	StudyTitle  string          `json:"study_title,omitempty"`
	Counts      FunnelCounts    `json:"counts"`
	Conversions ConversionRates `json:"conversions"`
}

type StudyFunnelSummary struct {
	StudyID             string `json:"study_id"`
	StudyTitle          string `json:"study_title"`
	Status              string `json:"status"`
	MaxParticipants     int    `json:"max_participants"`
	CurrentParticipants int    `json:"current_participants"`
	TotalApplications   int64  `json:"total_applications"`
	Approved            int64  `json:"approved"`
	Completed           int64  `json:"completed"`
}

type RecentActivityItem struct {
	ApplicationID string    `json:"application_id"`
	MemberName    string    `json:"member_name"`
	StudyTitle    string    `json:"study_title"`
	Status        string    `json:"status"`
	SubmittedAt   time.Time `json:"submitted_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MonthlyCount is one bucket of the member-creation trend, keyed "2026-08".
type MonthlyCount struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

// StageCounts is the raw per-stage application tally with no derived rates.
type StageCounts struct {
	Submitted   int64 `json:"submitted"`
	UnderReview int64 `json:"under_review"`
	Screening   int64 `json:"screening"`
	Interview   int64 `json:"interview"`
	Approved    int64 `json:"approved"`
	Rejected    int64 `json:"rejected"`
}

type AnalyticsResponse struct {
	GenderBreakdown  map[string]int64 `json:"gender_breakdown"`
	AverageAge       float64          `json:"average_age"`
	StatusBreakdown  map[string]int64 `json:"status_breakdown"`
	MonthlyMembers   []MonthlyCount   `json:"monthly_members"`
	ConversionCounts StageCounts      `json:"conversion_counts"`
}

// pendingStatuses are the stages that still need staff action.
var pendingStatuses = []string{
	models.AppStatusSubmitted,
	models.AppStatusUnderReview,
	models.AppStatusScreening,
	models.AppStatusInterviewScheduled,
}

// GetMetrics returns headline counts for the dashboard.
func (s *DashboardService) GetMetrics() (*DashboardMetrics, error) {
	metrics := &DashboardMetrics{}

	if err := s.db.Model(&models.Member{}).Count(&metrics.TotalMembers).Error; err != nil {
		return nil, err
	}
	s.db.Model(&models.Member{}).Where("status = ?", models.MemberStatusActive).Count(&metrics.ActiveMembers)
	s.db.Model(&models.Study{}).Count(&metrics.TotalStudies)
	s.db.Model(&models.Study{}).Where("status = ?", models.StudyStatusActive).Count(&metrics.ActiveStudies)
	s.db.Model(&models.Application{}).Count(&metrics.TotalApplications)
	s.db.Model(&models.Application{}).Where("status IN ?", pendingStatuses).Count(&metrics.PendingApplications)
	s.db.Model(&models.Application{}).
		Where("status IN ?", []string{models.AppStatusApproved, models.AppStatusCompleted}).
		Count(&metrics.SuccessfulPlacements)

	now := time.Now()
	s.db.Model(&models.Member{}).
		Where("created_at >= ?", now.AddDate(0, 0, -30)).
		Count(&metrics.NewMembers30Days)
	s.db.Model(&models.Application{}).
		Where("submitted_at >= ?", now.AddDate(0, 0, -7)).
		Count(&metrics.Submissions7Days)

	avg, err := s.averageReviewDays()
	if err != nil {
		return nil, err
	}
	metrics.AvgReviewDays = avg

	top, err := s.topActiveStudies(5)
	if err != nil {
		return nil, err
	}
	metrics.TopStudies = top

	return metrics, nil
}

// averageReviewDays is the mean reviewed_at-submitted_at over reviewed
// applications, in days. The arithmetic runs in Go so it behaves the same
// on every supported driver.
func (s *DashboardService) averageReviewDays() (float64, error) {
	type reviewRow struct {
		SubmittedAt time.Time
		ReviewedAt  time.Time
	}
	var rows []reviewRow
	if err := s.db.Model(&models.Application{}).
		Select("submitted_at, reviewed_at").
		Where("reviewed_at IS NOT NULL").
		Scan(&rows).Error; err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	var total float64
	for _, row := range rows {
		total += row.ReviewedAt.Sub(row.SubmittedAt).Hours() / 24
	}
	return total / float64(len(rows)), nil
}

// topActiveStudies ranks active studies by application count.
func (s *DashboardService) topActiveStudies(limit int) ([]TopStudy, error) {
	rows := make([]TopStudy, 0, limit)
	err := s.db.Model(&models.Application{}).
		Select("applications.study_id AS study_id, studies.title AS title, COUNT(*) AS applications").
		Joins("JOIN studies ON studies.id = applications.study_id").
		Where("studies.status = ?", models.StudyStatusActive).
		Group("applications.study_id, studies.title").
		Order("applications DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// GetFunnel computes the recruitment funnel over the active member pool.
func (s *DashboardService) GetFunnel() (*FunnelResponse, error) {
	counts, err := s.collectCounts(s.activeMemberApplications())
	if err != nil {
		return nil, err
	}

	return &FunnelResponse{
		Counts:      counts,
		Conversions: computeConversions(counts),
	}, nil
}

// GetStudyFunnel computes the funnel for a single study. The member base is
// still the whole active pool, since any member may apply to any study.
func (s *DashboardService) GetStudyFunnel(studyID string) (*FunnelResponse, error) {
	var study models.Study
	if err := s.db.Where("id = ?", studyID).First(&study).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("study not found")
		}
		return nil, err
	}

	counts, err := s.collectCounts(
		s.activeMemberApplications().Where("applications.study_id = ?", studyID))
	if err != nil {
		return nil, err
	}

	return &FunnelResponse{
		StudyID:     study.ID,
		StudyTitle:  study.Title,
		Counts:      counts,
		Conversions: computeConversions(counts),
	}, nil
}

// activeMemberApplications is the shared funnel base: applications joined
// to members that are still active.
func (s *DashboardService) activeMemberApplications() *gorm.DB {
	return s.db.Model(&models.Application{}).
		Joins("JOIN members ON members.id = applications.member_id").
		Where("members.status = ?", models.MemberStatusActive)
}

func (s *DashboardService) collectCounts(base *gorm.DB) (FunnelCounts, error) {
	var counts FunnelCounts

	if err := s.db.Model(&models.Member{}).
		Where("status = ?", models.MemberStatusActive).
		Count(&counts.TotalMembers).Error; err != nil {
		return counts, err
	}
	if err := base.Session(&gorm.Session{}).Count(&counts.TotalApplications).Error; err != nil {
		return counts, err
	}

	stages := []struct {
		dest   *int64
		status string
	}{
		{&counts.InReview, models.AppStatusUnderReview},
		{&counts.InScreening, models.AppStatusScreening},
		{&counts.Interviews, models.AppStatusInterviewScheduled},
		{&counts.Approved, models.AppStatusApproved},
		{&counts.Completed, models.AppStatusCompleted},
	}
	for _, stage := range stages {
		if err := base.Session(&gorm.Session{}).
			Where("applications.status = ?", stage.status).Count(stage.dest).Error; err != nil {
			return counts, err
		}
	}

	return counts, nil
}

// computeConversions derives percentage rates from raw stage counts.
// application_rate divides by the member pool; every other rate divides by
// total applications. Denominators are floored to 1 so an empty pool or
// empty funnel yields "0.00" instead of dividing by zero.
func computeConversions(c FunnelCounts) ConversionRates {
	return ConversionRates{
		ApplicationRate: formatRate(c.TotalApplications, c.TotalMembers),
		ReviewRate:      formatRate(c.InReview, c.TotalApplications),
		ScreeningRate:   formatRate(c.InScreening, c.TotalApplications),
		InterviewRate:   formatRate(c.Interviews, c.TotalApplications),
		ApprovalRate:    formatRate(c.Approved, c.TotalApplications),
		CompletionRate:  formatRate(c.Completed, c.TotalApplications),
	}
}

func formatRate(numerator, denominator int64) string {
	if denominator < 1 {
		denominator = 1
	}
	return fmt.Sprintf("%.2f", float64(numerator)/float64(denominator)*100)
}

// GetAnalytics returns the demographic breakdown, application histogram and
// the trailing-12-month member-creation trend.
func (s *DashboardService) GetAnalytics() (*AnalyticsResponse, error) {
	out := &AnalyticsResponse{
		GenderBreakdown: make(map[string]int64),
		StatusBreakdown: make(map[string]int64),
	}

	type genderRow struct {
		Gender string
		Count  int64
	}
	var genders []genderRow
	if err := s.db.Model(&models.Member{}).
		Select("gender, COUNT(*) AS count").
		Where("status = ?", models.MemberStatusActive).
		Group("gender").Scan(&genders).Error; err != nil {
		return nil, err
	}
	for _, row := range genders {
		gender := row.Gender
		if gender == "" {
			gender = "unspecified"
		}
		out.GenderBreakdown[gender] = row.Count
	}

	avgAge, err := s.averageMemberAge()
	if err != nil {
		return nil, err
	}
	out.AverageAge = avgAge

	type statusRow struct {
		Status string
		Count  int64
	}
	var statuses []statusRow
	if err := s.db.Model(&models.Application{}).
		Select("status, COUNT(*) AS count").
		Group("status").Scan(&statuses).Error; err != nil {
		return nil, err
	}
	for _, row := range statuses {
		out.StatusBreakdown[row.Status] = row.Count
	}
	out.ConversionCounts = StageCounts{
		Submitted:   out.StatusBreakdown[models.AppStatusSubmitted],
		UnderReview: out.StatusBreakdown[models.AppStatusUnderReview],
		Screening:   out.StatusBreakdown[models.AppStatusScreening],
		Interview:   out.StatusBreakdown[models.AppStatusInterviewScheduled],
		Approved:    out.StatusBreakdown[models.AppStatusApproved],
		Rejected:    out.StatusBreakdown[models.AppStatusRejected],
	}

	trend, err := s.monthlyMemberTrend(time.Now(), 12)
	if err != nil {
		return nil, err
	}
	out.MonthlyMembers = trend

	return out, nil
}

// averageMemberAge is the mean age of active members, derived from their
// dates of birth in Go.
func (s *DashboardService) averageMemberAge() (float64, error) {
	var births []time.Time
	if err := s.db.Model(&models.Member{}).
		Where("status = ?", models.MemberStatusActive).
		Pluck("date_of_birth", &births).Error; err != nil {
		return 0, err
	}
	if len(births) == 0 {
		return 0, nil
	}

	now := time.Now()
	var total int
	for _, dob := range births {
		m := models.Member{DateOfBirth: dob}
		total += m.Age(now)
	}
	return float64(total) / float64(len(births)), nil
}

// monthlyMemberTrend buckets member creations per calendar month for the
// trailing window, zero-filling months with no registrations. Bucketing runs
// in Go since month truncation syntax differs per driver.
func (s *DashboardService) monthlyMemberTrend(now time.Time, months int) ([]MonthlyCount, error) {
	windowStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).
		AddDate(0, -(months - 1), 0)

	var created []time.Time
	if err := s.db.Model(&models.Member{}).
		Where("created_at >= ?", windowStart).
		Pluck("created_at", &created).Error; err != nil {
		return nil, err
	}

	byMonth := make(map[string]int64)
	for _, t := range created {
		byMonth[t.Format("2006-01")]++
	}

	trend := make([]MonthlyCount, 0, months)
	for i := 0; i < months; i++ {
		month := windowStart.AddDate(0, i, 0).Format("2006-01")
		trend = append(trend, MonthlyCount{Month: month, Count: byMonth[month]})
	}
	return trend, nil
}

// ListStudyFunnels returns a per-study recruitment summary for every
// non-draft study, newest first.
func (s *DashboardService) ListStudyFunnels() ([]StudyFunnelSummary, error) {
	var studies []models.Study
	if err := s.db.Where("status <> ?", models.StudyStatusDraft).
		Order("created_at DESC").Find(&studies).Error; err != nil {
		return nil, err
	}

	summaries := make([]StudyFunnelSummary, 0, len(studies))
	for _, study := range studies {
		summary := StudyFunnelSummary{
			StudyID:             study.ID,
			StudyTitle:          study.Title,
			Status:              study.Status,
			MaxParticipants:     study.MaxParticipants,
			CurrentParticipants: study.CurrentParticipants,
		}
		s.db.Model(&models.Application{}).Where("study_id = ?", study.ID).Count(&summary.TotalApplications)
		s.db.Model(&models.Application{}).
			Where("study_id = ? AND status IN ?", study.ID,
				[]string{models.AppStatusApproved, models.AppStatusCompleted}).
			Count(&summary.Approved)
		s.db.Model(&models.Application{}).
			Where("study_id = ? AND status = ?", study.ID, models.AppStatusCompleted).
			Count(&summary.Completed)
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// GetRecentActivity returns the most recently updated applications.
func (s *DashboardService) GetRecentActivity(limit int) ([]RecentActivityItem, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	var apps []models.Application
	if err := s.db.Preload("Member").Preload("Study").
		Order("updated_at DESC").Limit(limit).Find(&apps).Error; err != nil {
		return nil, err
	}

	items := make([]RecentActivityItem, 0, len(apps))
	for _, app := range apps {
		item := RecentActivityItem{
			ApplicationID: app.ID,
			Status:        app.Status,
			SubmittedAt:   app.SubmittedAt,
			UpdatedAt:     app.UpdatedAt,
		}
		if app.Member != nil {
			item.MemberName = app.Member.FirstName + " " + app.Member.LastName
		}
		if app.Study != nil {
			item.StudyTitle = app.Study.Title
		}
		items = append(items, item)
	}

	return items, nil
}
