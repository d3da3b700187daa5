package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/clinreach/clinreach/internal/models"
	"github.com/clinreach/clinreach/pkg/response"
)

func TestComputeConversions(t *testing.T) {
	tests := []struct {
		name   string
		counts FunnelCounts
		want   ConversionRates
	}{
		{
			name: "typical funnel",
			counts: FunnelCounts{
				TotalMembers:      100,
				TotalApplications: 50,
				InReview:          10,
				InScreening:       8,
				Interviews:        6,
				Approved:          5,
				Completed:         2,
			},
			want: ConversionRates{
				ApplicationRate: "50.00",
				ReviewRate:      "20.00",
				ScreeningRate:   "16.00",
				InterviewRate:   "12.00",
				ApprovalRate:    "10.00",
				CompletionRate:  "4.00",
			},
		},
		{
			name:   "empty pool and funnel",
			counts: FunnelCounts{},
			want: ConversionRates{
				ApplicationRate: "0.00",
				ReviewRate:      "0.00",
				ScreeningRate:   "0.00",
				InterviewRate:   "0.00",
				ApprovalRate:    "0.00",
				CompletionRate:  "0.00",
			},
		},
		{
			name: "members but no applications",
			counts: FunnelCounts{
				TotalMembers: 100,
			},
			want: ConversionRates{
				ApplicationRate: "0.00",
				ReviewRate:      "0.00",
				ScreeningRate:   "0.00",
				InterviewRate:   "0.00",
				ApprovalRate:    "0.00",
				CompletionRate:  "0.00",
			},
		},
		{
			name: "fractional rates keep two decimals",
			counts: FunnelCounts{
				TotalMembers:      3,
				TotalApplications: 1,
				InScreening:       1,
			},
			want: ConversionRates{
				ApplicationRate: "33.33",
				ReviewRate:      "0.00",
				ScreeningRate:   "100.00",
				InterviewRate:   "0.00",
				ApprovalRate:    "0.00",
				CompletionRate:  "0.00",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := computeConversions(tt.counts)
			if got != tt.want {
				t.Errorf("computeConversions() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFormatRate(t *testing.T) {
	tests := []struct {
		numerator   int64
		denominator int64
		want        string
	}{
		{0, 0, "0.00"},
		{0, 100, "0.00"},
		{50, 100, "50.00"},
		{100, 100, "100.00"},
		{1, 3, "33.33"},
		{2, 3, "66.67"},
	}

	for _, tt := range tests {
		if got := formatRate(tt.numerator, tt.denominator); got != tt.want {
			t.Errorf("formatRate(%d, %d) = %q, want %q", tt.numerator, tt.denominator, got, tt.want)
		}
	}
}

func TestGetFunnel_PerStatusOverActiveMembers(t *testing.T) {
	db := openTestDB(t, "funnel_active")
	appSvc := NewApplicationService(db, false)
	dashSvc := NewDashboardService(db)

	study := createTestStudy(t, db, models.StudyStatusActive, 20)

	statuses := []string{
		models.AppStatusSubmitted,
		models.AppStatusUnderReview,
		models.AppStatusScreening,
		models.AppStatusApproved,
		models.AppStatusCompleted,
	}
	for i, status := range statuses {
		member := createTestMember(t, db, fmt.Sprintf("funnel%d@example.com", i))
		app, err := appSvc.Submit(&SubmitApplicationRequest{MemberID: member.ID, StudyID: study.ID})
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if status != models.AppStatusSubmitted {
			if _, err := appSvc.UpdateStatus(app.ID, 1, &UpdateApplicationStatusRequest{Status: status}); err != nil {
				t.Fatalf("UpdateStatus(%s) error = %v", status, err)
			}
		}
	}

	// A member deactivated after applying drops out of the funnel entirely.
	gone := createTestMember(t, db, "gone@example.com")
	if _, err := appSvc.Submit(&SubmitApplicationRequest{MemberID: gone.ID, StudyID: study.ID}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	db.Model(gone).Update("status", models.MemberStatusInactive)

	funnel, err := dashSvc.GetFunnel()
	if err != nil {
		t.Fatalf("GetFunnel() error = %v", err)
	}

	c := funnel.Counts
	if c.TotalMembers != 5 {
		t.Errorf("total_members = %d, want 5 (inactive member excluded)", c.TotalMembers)
	}
	if c.TotalApplications != 5 {
		t.Errorf("total_applications = %d, want 5 (inactive member's application excluded)", c.TotalApplications)
	}
	if c.InReview != 1 || c.InScreening != 1 || c.Interviews != 0 || c.Approved != 1 || c.Completed != 1 {
		t.Errorf("stage counts = %+v, want 1/1/0/1/1", c)
	}

	conv := funnel.Conversions
	if conv.ApplicationRate != "100.00" {
		t.Errorf("application_rate = %q, want 100.00", conv.ApplicationRate)
	}
	if conv.ReviewRate != "20.00" {
		t.Errorf("review_rate = %q, want 20.00", conv.ReviewRate)
	}
	if conv.InterviewRate != "0.00" {
		t.Errorf("interview_rate = %q, want 0.00", conv.InterviewRate)
	}
	if conv.ApprovalRate != "20.00" {
		t.Errorf("approval_rate = %q, want 20.00", conv.ApprovalRate)
	}
	if conv.CompletionRate != "20.00" {
		t.Errorf("completion_rate = %q, want 20.00", conv.CompletionRate)
	}
}

func TestGetStudyFunnel(t *testing.T) {
	db := openTestDB(t, "funnel_study")
	appSvc := NewApplicationService(db, false)
	dashSvc := NewDashboardService(db)

	study := createTestStudy(t, db, models.StudyStatusActive, 10)
	other := createTestStudy(t, db, models.StudyStatusActive, 10)

	m1 := createTestMember(t, db, "f1@example.com")
	m2 := createTestMember(t, db, "f2@example.com")
	if _, err := appSvc.Submit(&SubmitApplicationRequest{MemberID: m1.ID, StudyID: study.ID}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := appSvc.Submit(&SubmitApplicationRequest{MemberID: m2.ID, StudyID: other.ID}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	funnel, err := dashSvc.GetStudyFunnel(study.ID)
	if err != nil {
		t.Fatalf("GetStudyFunnel() error = %v", err)
	}
	if funnel.StudyID != study.ID {
		t.Errorf("study_id = %q, want %q", funnel.StudyID, study.ID)
	}
	if funnel.Counts.TotalApplications != 1 {
		t.Errorf("total_applications = %d, want 1 (other study excluded)", funnel.Counts.TotalApplications)
	}

	if _, err := dashSvc.GetStudyFunnel("missing"); !response.IsKind(err, response.KindNotFound) {
		t.Errorf("unknown study: error kind = %q, want %q", response.Kind(err), response.KindNotFound)
	}
}

func TestGetMetrics(t *testing.T) {
	db := openTestDB(t, "metrics")
	appSvc := NewApplicationService(db, false)
	dashSvc := NewDashboardService(db)

	study := createTestStudy(t, db, models.StudyStatusActive, 10)
	createTestStudy(t, db, models.StudyStatusDraft, 10)

	m1 := createTestMember(t, db, "a@example.com")
	m2 := createTestMember(t, db, "b@example.com")
	m3 := createTestMember(t, db, "c@example.com")
	db.Model(m2).Update("status", models.MemberStatusInactive)

	app, err := appSvc.Submit(&SubmitApplicationRequest{MemberID: m1.ID, StudyID: study.ID})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := appSvc.UpdateStatus(app.ID, 1, &UpdateApplicationStatusRequest{Status: models.AppStatusUnderReview}); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	placed, err := appSvc.Submit(&SubmitApplicationRequest{MemberID: m3.ID, StudyID: study.ID})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := appSvc.UpdateStatus(placed.ID, 1, &UpdateApplicationStatusRequest{Status: models.AppStatusApproved}); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	metrics, err := dashSvc.GetMetrics()
	if err != nil {
		t.Fatalf("GetMetrics() error = %v", err)
	}

	if metrics.TotalMembers != 3 || metrics.ActiveMembers != 2 {
		t.Errorf("members = %d/%d active, want 3/2", metrics.TotalMembers, metrics.ActiveMembers)
	}
	if metrics.TotalStudies != 2 || metrics.ActiveStudies != 1 {
		t.Errorf("studies = %d/%d active, want 2/1", metrics.TotalStudies, metrics.ActiveStudies)
	}
	if metrics.PendingApplications != 1 {
		t.Errorf("pending_applications = %d, want 1", metrics.PendingApplications)
	}
	if metrics.SuccessfulPlacements != 1 {
		t.Errorf("successful_placements = %d, want 1", metrics.SuccessfulPlacements)
	}
	if metrics.NewMembers30Days != 3 {
		t.Errorf("new_members_30_days = %d, want 3", metrics.NewMembers30Days)
	}
	if metrics.Submissions7Days != 2 {
		t.Errorf("submissions_7_days = %d, want 2", metrics.Submissions7Days)
	}
	if metrics.AvgReviewDays < 0 {
		t.Errorf("avg_review_days = %f, want >= 0", metrics.AvgReviewDays)
	}
	if len(metrics.TopStudies) != 1 {
		t.Fatalf("top studies = %d entries, want 1", len(metrics.TopStudies))
	}
	if metrics.TopStudies[0].StudyID != study.ID || metrics.TopStudies[0].Applications != 2 {
		t.Errorf("top study = %+v, want study %s with 2 applications", metrics.TopStudies[0], study.ID)
	}
}

func TestGetAnalytics(t *testing.T) {
	db := openTestDB(t, "analytics")
	appSvc := NewApplicationService(db, false)
	dashSvc := NewDashboardService(db)

	study := createTestStudy(t, db, models.StudyStatusActive, 10)

	m1 := createTestMember(t, db, "g1@example.com")
	db.Model(m1).Update("gender", "female")
	m2 := createTestMember(t, db, "g2@example.com")
	db.Model(m2).Update("gender", "male")
	createTestMember(t, db, "g3@example.com")

	app, err := appSvc.Submit(&SubmitApplicationRequest{MemberID: m1.ID, StudyID: study.ID})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := appSvc.UpdateStatus(app.ID, 1, &UpdateApplicationStatusRequest{Status: models.AppStatusRejected}); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if _, err := appSvc.Submit(&SubmitApplicationRequest{MemberID: m2.ID, StudyID: study.ID}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	analytics, err := dashSvc.GetAnalytics()
	if err != nil {
		t.Fatalf("GetAnalytics() error = %v", err)
	}

	if analytics.GenderBreakdown["female"] != 1 || analytics.GenderBreakdown["male"] != 1 {
		t.Errorf("gender breakdown = %+v, want female:1 male:1", analytics.GenderBreakdown)
	}
	if analytics.GenderBreakdown["unspecified"] != 1 {
		t.Errorf("gender breakdown = %+v, want unspecified:1", analytics.GenderBreakdown)
	}
	if analytics.AverageAge <= 0 {
		t.Errorf("average_age = %f, want > 0", analytics.AverageAge)
	}
	if analytics.StatusBreakdown[models.AppStatusSubmitted] != 1 || analytics.StatusBreakdown[models.AppStatusRejected] != 1 {
		t.Errorf("status breakdown = %+v, want submitted:1 rejected:1", analytics.StatusBreakdown)
	}
	if analytics.ConversionCounts.Submitted != 1 || analytics.ConversionCounts.Rejected != 1 {
		t.Errorf("conversion counts = %+v, want submitted:1 rejected:1", analytics.ConversionCounts)
	}

	if len(analytics.MonthlyMembers) != 12 {
		t.Fatalf("monthly trend = %d buckets, want 12", len(analytics.MonthlyMembers))
	}
	current := time.Now().Format("2006-01")
	last := analytics.MonthlyMembers[len(analytics.MonthlyMembers)-1]
	if last.Month != current {
		t.Errorf("last bucket = %q, want current month %q", last.Month, current)
	}
	if last.Count != 3 {
		t.Errorf("current month count = %d, want 3", last.Count)
	}
}

func TestMonthlyMemberTrend_ZeroFill(t *testing.T) {
	db := openTestDB(t, "trend")
	dashSvc := NewDashboardService(db)

	createTestMember(t, db, "t1@example.com")

	trend, err := dashSvc.monthlyMemberTrend(time.Now(), 3)
	if err != nil {
		t.Fatalf("monthlyMemberTrend() error = %v", err)
	}
	if len(trend) != 3 {
		t.Fatalf("trend = %d buckets, want 3", len(trend))
	}
	if trend[0].Count != 0 || trend[1].Count != 0 {
		t.Errorf("past months should be zero-filled, got %+v", trend)
	}
	if trend[2].Count != 1 {
		t.Errorf("current month count = %d, want 1", trend[2].Count)
	}
}
