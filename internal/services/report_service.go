package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/team-task-api/internal/access"
	"github.com/yukikurage/team-task-api/internal/constants"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/repository"
	"golang.org/x/sync/errgroup"
)

var ErrInvalidDateRange = errors.New("invalid date range")

var statusLabels = map[models.TaskStatus]string{
	models.TaskStatusPending:    "Pending",
	models.TaskStatusInProgress: "In Progress",
	models.TaskStatusCompleted:  "Completed",
	models.TaskStatusCancelled:  "Cancelled",
}

var statusColors = map[models.TaskStatus]string{
	models.TaskStatusPending:    "#f59e0b",
	models.TaskStatusInProgress: "#3b82f6",
	models.TaskStatusCompleted:  "#10b981",
	models.TaskStatusCancelled:  "#ef4444",
}

type actionStyle struct {
	label string
	color string
}

// actionOrder fixes the dataset order of the activity timeline.
var actionOrder = []models.ActionType{
	models.ActionTaskCreated,
	models.ActionTaskUpdated,
	models.ActionTaskStatusUpdated,
	models.ActionTaskDeleted,
	models.ActionTeamCreated,
	models.ActionTeamUpdated,
	models.ActionTeamDeleted,
	models.ActionTeamMemberAdded,
	models.ActionTeamMemberRemoved,
}

var actionStyles = map[models.ActionType]actionStyle{
	models.ActionTaskCreated:       {"Tasks Created", "#3b82f6"},
	models.ActionTaskUpdated:       {"Tasks Updated", "#8b5cf6"},
	models.ActionTaskStatusUpdated: {"Status Changes", "#f59e0b"},
	models.ActionTaskDeleted:       {"Tasks Deleted", "#ef4444"},
	models.ActionTeamCreated:       {"Teams Created", "#10b981"},
	models.ActionTeamUpdated:       {"Teams Updated", "#14b8a6"},
	models.ActionTeamDeleted:       {"Teams Deleted", "#dc2626"},
	models.ActionTeamMemberAdded:   {"Members Added", "#22c55e"},
	models.ActionTeamMemberRemoved: {"Members Removed", "#f97316"},
}

// Report is the chart-ready payload returned by GET /reports.
type Report struct {
	TaskStatusDistribution StatusDistribution `json:"taskStatusDistribution"`
	TasksOverTime          TaskSeries         `json:"tasksOverTime"`
	TeamPerformance        TeamPerformance    `json:"teamPerformance"`
	UserProductivity       UserProductivity   `json:"userProductivity"`
	ActivityTimeline       ActivityTimeline   `json:"activityTimeline"`
}

type StatusDistribution struct {
	Labels []string `json:"labels"`
	Data   []int64  `json:"data"`
	Colors []string `json:"colors"`
}

type TaskSeries struct {
	Labels    []string `json:"labels"`
	Created   []int64  `json:"created"`
	Completed []int64  `json:"completed"`
}

type TeamPerformance struct {
	Labels     []string `json:"labels"`
	Tasks      []int64  `json:"tasks"`
	Completed  []int64  `json:"completed"`
	InProgress []int64  `json:"inProgress"`
	Pending    []int64  `json:"pending"`
	Members    []int64  `json:"members"`
}

type UserProductivity struct {
	Labels     []string `json:"labels"`
	Total      []int64  `json:"total"`
	Completed  []int64  `json:"completed"`
	InProgress []int64  `json:"inProgress"`
	Pending    []int64  `json:"pending"`
}

type ActivityTimeline struct {
	Labels   []string          `json:"labels"`
	Datasets []ActivityDataset `json:"datasets"`
}

type ActivityDataset struct {
	Label string  `json:"label"`
	Data  []int64 `json:"data"`
	Color string  `json:"color"`
}

// ReportQuery carries the optional report filters. StartDate and EndDate
// are calendar days; EndDate is inclusive.
type ReportQuery struct {
	TeamID    *uint64
	TaskID    *uint64
	UserID    *uint64
	StartDate *time.Time
	EndDate   *time.Time
}

// ReportService assembles the five report aggregates.
type ReportService struct {
	repo repository.ReportRepository
	now  func() time.Time
}

func NewReportService(repo repository.ReportRepository) *ReportService {
	return &ReportService{repo: repo, now: time.Now}
}

// Generate runs every aggregate under the same role scope. The optional
// filters narrow the scope and never replace it.
func (s *ReportService) Generate(ctx context.Context, actor access.Actor, q ReportQuery) (*Report, error) {
	if !access.CanViewReports(actor) {
		return nil, ErrForbidden
	}

	filters := access.Filters{TeamID: q.TeamID, TaskID: q.TaskID, UserID: q.UserID}
	if q.StartDate != nil {
		start := startOfDay(*q.StartDate)
		filters.Start = &start
	}
	if q.EndDate != nil {
		end := startOfDay(*q.EndDate).AddDate(0, 0, 1)
		filters.End = &end
	}
	if filters.Start != nil && filters.End != nil && !filters.Start.Before(*filters.End) {
		return nil, fmt.Errorf("%w: start_date is after end_date", ErrInvalidDateRange)
	}

	window, err := s.window(filters)
	if err != nil {
		return nil, err
	}

	taskWhere := access.And(access.ReportTaskScope(actor), filters.TaskFilter())
	teamWhere := access.And(access.ReportTeamScope(actor), filters.TeamFilter())

	report := &Report{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		dist, err := s.statusDistribution(gctx, taskWhere)
		report.TaskStatusDistribution = dist
		return err
	})
	g.Go(func() error {
		series, err := s.tasksOverTime(gctx, actor, window)
		report.TasksOverTime = series
		return err
	})
	g.Go(func() error {
		perf, err := s.teamPerformance(gctx, teamWhere, taskWhere)
		report.TeamPerformance = perf
		return err
	})
	g.Go(func() error {
		prod, err := s.userProductivity(gctx, taskWhere)
		report.UserProductivity = prod
		return err
	})
	g.Go(func() error {
		timeline, err := s.activityTimeline(gctx, actor, window)
		report.ActivityTimeline = timeline
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to generate report: %w", err)
	}
	return report, nil
}

// window resolves the series range: the given dates, or the trailing
// DefaultReportWindowDays ending today.
func (s *ReportService) window(f access.Filters) (access.Filters, error) {
	today := startOfDay(s.now())
	w := f
	if w.End == nil {
		end := today.AddDate(0, 0, 1)
		w.End = &end
	}
	if w.Start == nil {
		start := w.End.AddDate(0, 0, -constants.DefaultReportWindowDays)
		w.Start = &start
	}
	if !w.Start.Before(*w.End) {
		return w, fmt.Errorf("%w: start_date is after end_date", ErrInvalidDateRange)
	}
	return w, nil
}

func (s *ReportService) statusDistribution(ctx context.Context, where access.Expr) (StatusDistribution, error) {
	rows, err := s.repo.StatusCounts(ctx, where)
	if err != nil {
		return StatusDistribution{}, err
	}
	counts := make(map[models.TaskStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}

	dist := StatusDistribution{}
	for _, st := range models.TaskStatuses {
		dist.Labels = append(dist.Labels, statusLabels[st])
		dist.Data = append(dist.Data, counts[st])
		dist.Colors = append(dist.Colors, statusColors[st])
	}
	return dist, nil
}

func (s *ReportService) tasksOverTime(ctx context.Context, actor access.Actor, w access.Filters) (TaskSeries, error) {
	scope := access.ReportTaskScope(actor)

	created, err := s.repo.TaskTimestamps(ctx, "tasks.created_at", access.And(scope, w.TaskFilter()))
	if err != nil {
		return TaskSeries{}, err
	}
	completed, err := s.repo.TaskTimestamps(ctx, "tasks.completed_at", access.And(
		scope,
		w.TaskFilterNoDates(),
		access.Cmp("tasks.completed_at", ">=", *w.Start),
		access.Cmp("tasks.completed_at", "<", *w.End),
	))
	if err != nil {
		return TaskSeries{}, err
	}

	labels, index := dayBuckets(*w.Start, *w.End)
	return TaskSeries{
		Labels:    labels,
		Created:   bucketCounts(created, index, len(labels)),
		Completed: bucketCounts(completed, index, len(labels)),
	}, nil
}

func (s *ReportService) teamPerformance(ctx context.Context, teamWhere, taskWhere access.Expr) (TeamPerformance, error) {
	teams, err := s.repo.Teams(ctx, teamWhere)
	if err != nil {
		return TeamPerformance{}, err
	}

	ids := make([]uint64, 0, len(teams))
	for _, t := range teams {
		ids = append(ids, t.ID)
	}
	rows, err := s.repo.TeamStatusCounts(ctx, ids, taskWhere)
	if err != nil {
		return TeamPerformance{}, err
	}
	counts := make(map[uint64]map[models.TaskStatus]int64, len(teams))
	for _, r := range rows {
		if counts[r.TeamID] == nil {
			counts[r.TeamID] = map[models.TaskStatus]int64{}
		}
		counts[r.TeamID][r.Status] = r.Count
	}

	perf := emptyTeamPerformance()
	for _, t := range teams {
		c := counts[t.ID]
		var total int64
		for _, n := range c {
			total += n
		}
		perf.Labels = append(perf.Labels, t.Name)
		perf.Tasks = append(perf.Tasks, total)
		perf.Completed = append(perf.Completed, c[models.TaskStatusCompleted])
		perf.InProgress = append(perf.InProgress, c[models.TaskStatusInProgress])
		perf.Pending = append(perf.Pending, c[models.TaskStatusPending])
		perf.Members = append(perf.Members, t.MemberCount)
	}
	return perf, nil
}

func (s *ReportService) userProductivity(ctx context.Context, taskWhere access.Expr) (UserProductivity, error) {
	rows, err := s.repo.TopEmployees(ctx, taskWhere, constants.TopEmployeesLimit)
	if err != nil {
		return UserProductivity{}, err
	}

	prod := UserProductivity{
		Labels:     []string{},
		Total:      []int64{},
		Completed:  []int64{},
		InProgress: []int64{},
		Pending:    []int64{},
	}
	for _, r := range rows {
		prod.Labels = append(prod.Labels, r.Name)
		prod.Total = append(prod.Total, r.Total)
		prod.Completed = append(prod.Completed, r.Completed)
		prod.InProgress = append(prod.InProgress, r.InProgress)
		prod.Pending = append(prod.Pending, r.Pending)
	}
	return prod, nil
}

func (s *ReportService) activityTimeline(ctx context.Context, actor access.Actor, w access.Filters) (ActivityTimeline, error) {
	events, err := s.repo.ActivityEvents(ctx, access.And(access.ActivityScope(actor), w.ActivityFilter()))
	if err != nil {
		return ActivityTimeline{}, err
	}

	labels, index := dayBuckets(*w.Start, *w.End)
	byAction := map[models.ActionType][]time.Time{}
	for _, e := range events {
		byAction[e.ActionType] = append(byAction[e.ActionType], e.CreatedAt)
	}

	timeline := ActivityTimeline{Labels: labels, Datasets: []ActivityDataset{}}
	for _, action := range actionOrder {
		stamps, ok := byAction[action]
		if !ok {
			continue
		}
		style := actionStyles[action]
		timeline.Datasets = append(timeline.Datasets, ActivityDataset{
			Label: style.label,
			Data:  bucketCounts(stamps, index, len(labels)),
			Color: style.color,
		})
	}
	return timeline, nil
}

func emptyTeamPerformance() TeamPerformance {
	return TeamPerformance{
		Labels:     []string{},
		Tasks:      []int64{},
		Completed:  []int64{},
		InProgress: []int64{},
		Pending:    []int64{},
		Members:    []int64{},
	}
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// dayBuckets returns one UTC day label per day in [start, end) and the
// label to position index.
func dayBuckets(start, end time.Time) ([]string, map[string]int) {
	labels := []string{}
	index := map[string]int{}
	for d := startOfDay(start); d.Before(end); d = d.AddDate(0, 0, 1) {
		key := d.Format(constants.DateLayout)
		index[key] = len(labels)
		labels = append(labels, key)
	}
	return labels, index
}

func bucketCounts(stamps []time.Time, index map[string]int, n int) []int64 {
	counts := make([]int64, n)
	for _, ts := range stamps {
		if i, ok := index[ts.UTC().Format(constants.DateLayout)]; ok {
			counts[i]++
		}
	}
	return counts
}
