package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: {prefix}:{module}:{entity}:{unique_id}
const (
	// LLMModulePrefix LLM模块
	LLMModulePrefix = "llm"

	// EntityResponse 章节回复实体
	EntityResponse = "response"

	// KeyLLMSectionResponse 章节回复缓存 (STRING)
	// 格式: {prefix}:llm:response:{model}:{section}:{textSHA256}
	KeyLLMSectionResponse = "%s:" + LLMModulePrefix + ":" + EntityResponse + ":%s:%s:%s"
)
