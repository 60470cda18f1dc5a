package reconciler

// Sentinel values used by the command schema.
const (
	PeriodUndefined      = "undefined"
	PeriodCronExpression = "cron_expression"
	TimeoutNone          = "NONE"
	TimeoutDefault       = "DEFAULT"
)

// AgentSchema describes the payload of PUT/POST /agents.
var AgentSchema = &Schema{
	Name: "agent",
	Fields: []Field{
		{Name: "description", Default: ""},
		{Name: "escalation", Fields: []Field{
			{Name: "failuresBeforeReport", Default: 0},
			{Name: "mailAddress", Default: ""},
			{Name: "mailEnabled", Default: false},
			{Name: "smsAddress", Default: ""},
			{Name: "smsEnabled", Default: false},
		}},
		{Name: "hostname", From: []string{"new_name", "name"}, SkipEmpty: true, Default: ""},
		{Name: "ipAddress", Default: ""},
		{Name: "location", Default: "virtual"},
		{Name: "scriptGroupId", Default: -1},
	},
}

// CommandSchema describes the payload of PUT/POST /systems/{id}/commands.
// agentId and processId are expected to be resolved by the caller.
var CommandSchema = &Schema{
	Name: "command",
	Fields: []Field{
		{Name: "name"},
		{Name: "agentId", Default: 0},
		{Name: "processId", Default: 0},
		{Name: "parameters"},
		{Name: "schedule", Fields: []Field{
			{Name: "period", Default: PeriodUndefined, SkipEmpty: true},
			{Name: "time"},
			{Name: "cronExpression", Default: "", SkipEmpty: true},
			{Name: "daysOfWeek", Default: []any{}, Normalize: SortWeekdays},
		}},
		{Name: "parametersNeeded", Default: true},
		{Name: "disabled", Default: true},
		{Name: "critical", Default: true},
		{Name: "history", Fields: []Field{
			{Name: "documentAllRuns", Default: true},
			{Name: "retention", Default: 0},
		}},
		{Name: "autoDeploy", Default: true},
		{Name: "timeout", Fields: []Field{
			{Name: "type", Default: TimeoutNone, SkipEmpty: true, Normalize: Upper},
			{Name: "value", Default: 0},
		}},
		{Name: "escalation", Fields: []Field{
			{Name: "mailEnabled", Default: false},
			{Name: "smsEnabled", Default: false},
			{Name: "mailAddress"},
			{Name: "smsAddress"},
			{Name: "minFailureCount", Default: 0},
			{Name: "triggers", Fields: []Field{
				{Name: "everyChange", Default: true},
				{Name: "toRed", Default: true},
				{Name: "toYellow", Default: true},
				{Name: "toGreen", Default: true},
			}},
		}},
	},
	Rules: []Rule{
		ClearUnless("schedule.cronExpression", "period", PeriodCronExpression),
		NullWhen("timeout.value", "type", TimeoutNone, TimeoutDefault),
	},
}

// SystemSchema describes the general section of PUT/POST /systems. Agent
// and variable assignments are reconciled separately.
var SystemSchema = &Schema{
	Name: "system",
	Fields: []Field{
		{Name: "name", From: []string{"new_name", "name"}, SkipEmpty: true, DesiredOnly: true},
		{Name: "description", Normalize: CollapseWhitespace},
		{Name: "magicNumber"},
		{Name: "schedulingDisabled", From: []string{"schedulingDisabled", "checksDisabled"}},
		{Name: "groupId"},
		{Name: "rfcConnection", Fields: []Field{
			{Name: "type"},
			{Name: "host"},
			{Name: "instanceNumber"},
			{Name: "sid"},
			{Name: "logonGroup"},
			{Name: "username"},
			{Name: "client"},
			{Name: "sapRouterString"},
			{Name: "sncEnabled"},
			{Name: "password", WriteOnly: true},
		}},
	},
}
