package cache

// Cache keys shared by the dashboard's data stores.
const (
	KeyProjectsAll         = "projects:all"
	KeyFinanceSummary      = "finance:summary"
	KeyFinanceTransactions = "finance:transactions"
	KeyFinanceSavings      = "finance:savings"
	KeyFinanceLoans        = "finance:loans"
	KeyTasksAll            = "tasks:all"
	KeyRoadmapsAll         = "roadmaps:all"
)

// Patterns for InvalidatePattern, one per key family.
const (
	PatternFinance  = "^finance:"
	PatternProjects = "^projects:"
	PatternTasks    = "^tasks:"
	PatternRoadmaps = "^roadmaps:"
)

func ProjectKey(id string) string        { return "projects:" + id }
func TaskKey(id string) string           { return "tasks:" + id }
func TasksByProjectKey(id string) string { return "tasks:project:" + id }
func RoadmapKey(id string) string        { return "roadmaps:" + id }

// FinanceKeys lists every finance key, in refresh order.
func FinanceKeys() []string {
	return []string{KeyFinanceSummary, KeyFinanceTransactions, KeyFinanceSavings, KeyFinanceLoans}
}
