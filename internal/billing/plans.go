// Package billing provides the pricing plan catalog and plan-based usage
// gating for productflow.
package billing

// Unlimited marks a plan limit with no cap.
const Unlimited = -1

// PlanLimits are the numeric caps attached to a plan. Unlimited (-1) means
// no cap.
type PlanLimits struct {
	MaxProjects         int  `json:"maxProjects"`
	MaxAnalysesPerMonth int  `json:"maxAnalysesPerMonth"`
	MaxResearchPerMonth int  `json:"maxResearchPerMonth"`
	MaxFilesPerProject  int  `json:"maxFilesPerProject"`
	PriorityProcessing  bool `json:"priorityProcessing"`
	ExportToJira        bool `json:"exportToJira"`
	TeamCollaboration   bool `json:"teamCollaboration"`
}

// Plan is a subscription tier. Prices are in cents; YearlyPrice is the
// per-month equivalent when billed yearly.
type Plan struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	MonthlyPrice int        `json:"monthlyPrice"`
	YearlyPrice  int        `json:"yearlyPrice"`
	Limits       PlanLimits `json:"limits"`
	Features     []string   `json:"features"`
	Highlighted  bool       `json:"highlighted"`
}

// Plans is the full catalog, ordered free to team.
var Plans = []Plan{
	{
		ID:          "free",
		Name:        "Free",
		Description: "Perfect for exploring product discovery",
		Limits: PlanLimits{
			MaxProjects:         2,
			MaxAnalysesPerMonth: 3,
			MaxResearchPerMonth: 1,
			MaxFilesPerProject:  10,
		},
		Features: []string{
			"2 projects",
			"3 AI analyses per month",
			"1 company research per month",
			"10 files per project",
			"Basic insights dashboard",
			"Feature proposals",
			"Task breakdowns",
		},
	},
	{
		ID:           "pro",
		Name:         "Pro",
		Description:  "For product managers and founders",
		MonthlyPrice: 2900,
		YearlyPrice:  2400,
		Limits: PlanLimits{
			MaxProjects:         Unlimited,
			MaxAnalysesPerMonth: 50,
			MaxResearchPerMonth: 20,
			MaxFilesPerProject:  Unlimited,
			PriorityProcessing:  true,
		},
		Features: []string{
			"Unlimited projects",
			"50 AI analyses per month",
			"20 company researches per month",
			"Unlimited files per project",
			"Priority processing",
			"Advanced insights & charts",
			"Feature proposals with detail",
			"Export task breakdowns",
		},
		Highlighted: true,
	},
	{
		ID:           "team",
		Name:         "Team",
		Description:  "For product teams shipping fast",
		MonthlyPrice: 7900,
		YearlyPrice:  6600,
		Limits: PlanLimits{
			MaxProjects:         Unlimited,
			MaxAnalysesPerMonth: Unlimited,
			MaxResearchPerMonth: Unlimited,
			MaxFilesPerProject:  Unlimited,
			PriorityProcessing:  true,
			ExportToJira:        true,
			TeamCollaboration:   true,
		},
		Features: []string{
			"Everything in Pro",
			"Unlimited analyses",
			"Unlimited company research",
			"Team collaboration",
			"Export to Jira & Linear",
			"Priority support",
			"Custom integrations",
			"API access",
		},
	},
}

// PlanByID returns the plan with the given id, or false if unknown.
func PlanByID(id string) (Plan, bool) {
	for _, p := range Plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// FreePlan returns the free tier, the default for users with no subscription.
func FreePlan() Plan {
	return Plans[0]
}
