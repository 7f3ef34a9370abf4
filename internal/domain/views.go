package domain

// OperationResult is the uniform envelope every lifecycle and scoring
// operation returns to callers.
type OperationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Ok builds a successful result.
func Ok(message string, data any) OperationResult {
	return OperationResult{Success: true, Message: message, Data: data}
}

// Fail builds a failed result.
func Fail(message string) OperationResult {
	return OperationResult{Success: false, Message: message}
}

// AnsweredItem is a question leaf annotated with its recorded answer.
type AnsweredItem struct {
	TreeItem
	ItemID      *int64       `json:"itemId,omitempty"`
	Result      AnswerResult `json:"resultado"`
	Observation string       `json:"observacion,omitempty"`
	Files       []ItemFile   `json:"archivos,omitempty"`
}

// ModuleView is a module of the read model: its items plus its computed result.
type ModuleView struct {
	ID     int64          `json:"id"`
	Name   string         `json:"name"`
	Items  []AnsweredItem `json:"items"`
	Result ModuleResult   `json:"result"`
}

// QuestionnaireView is the stable read model consumed by report rendering:
// the questionnaire with its answers, per-module results and suggested badge.
type QuestionnaireView struct {
	Questionnaire   Questionnaire `json:"questionnaire"`
	Company         Company       `json:"company"`
	StatusLabel     string        `json:"statusLabel"`
	Language        Language      `json:"language"`
	Modules         []ModuleView  `json:"modules"`
	SuggestedResult string        `json:"suggestedResult"`
}

// ProcessHistory is a process with its questionnaires and qualification decisions.
type ProcessHistory struct {
	Process        CertificationProcess  `json:"process"`
	StatusLabel    string                `json:"statusLabel"`
	Questionnaires []Questionnaire       `json:"questionnaires"`
	Results        []QualificationResult `json:"results"`
}

// LifecycleMetrics is the counter snapshot served by GET /v1/metrics/lifecycle.
type LifecycleMetrics struct {
	Transitions          map[string]float64 `json:"transitions"`
	Rejections           map[string]float64 `json:"rejections"`
	TxAttempts           float64            `json:"txAttempts"`
	TxRetries            float64            `json:"txRetries"`
	TxFailures           float64            `json:"txFailures"`
	CacheHitRate         float64            `json:"cacheHitRate"`
	NotificationsSent    float64            `json:"notificationsSent"`
	NotificationFailures float64            `json:"notificationFailures"`
}
