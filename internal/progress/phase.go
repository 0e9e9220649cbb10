package progress

// Phase 分析阶段，序号越大表示之前的阶段均已完成
type Phase int

const (
	PhaseRequestSent       Phase = iota // 发送请求
	PhaseDataFetched                    // 获取数据
	PhaseBasicAnalysis                  // 基础分析
	PhaseTechnicalAnalysis              // 技术指标分析
	PhaseAIEvaluation                   // AI评估
	PhaseScoringDone                    // 生成评分和建议
)

// PhaseCount 阶段总数
const PhaseCount = 6

// DefaultErrorMessage 出错但没有具体信息时显示的文本
const DefaultErrorMessage = "分析过程中出错"

// StepDef 步骤定义
type StepDef struct {
	ID   string
	Name string
}

// DefaultSteps 默认的六个分析步骤，顺序与 Phase 一致
var DefaultSteps = []StepDef{
	{ID: "request", Name: "发送请求"},
	{ID: "fetch", Name: "获取数据"},
	{ID: "basic", Name: "基础分析"},
	{ID: "technical", Name: "技术指标分析"},
	{ID: "ai", Name: "AI评估"},
	{ID: "score", Name: "生成评分和建议"},
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(DefaultSteps) {
		return "unknown"
	}
	return DefaultSteps[p].ID
}

// StepStatus 步骤显示状态
type StepStatus string

const (
	StatusWaiting    StepStatus = "waiting"
	StatusProcessing StepStatus = "processing"
	StatusCompleted  StepStatus = "completed"
	StatusError      StepStatus = "error"
)

// Step 单个步骤的显示状态
type Step struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Status  StepStatus `json:"status"`
	Message string     `json:"message,omitempty"`
}
