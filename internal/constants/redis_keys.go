package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: hiring:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "hiring"

	// JobModulePrefix 岗位模块
	JobModulePrefix = "job"

	// EntityProfile 岗位画像实体
	EntityProfile = "profile"
	// EntityVector 向量实体
	EntityVector = "vector"

	// KeyJobProfile 岗位画像缓存 (STRING, JSON)
	// 格式: hiring:job:profile:{jobID}
	KeyJobProfile = AppPrefix + ":" + JobModulePrefix + ":" + EntityProfile + ":%d"

	// KeyJobDescriptionVector JD向量缓存 (HASH: vector, model_version, jd_digest)
	// 格式: hiring:job:vector:{jobID}
	KeyJobDescriptionVector = AppPrefix + ":" + JobModulePrefix + ":" + EntityVector + ":%d"

	// KeyJobWarmLock 岗位缓存预热锁，多实例只有一个执行
	// 格式: hiring:lock:job:{jobID}
	KeyJobWarmLock = AppPrefix + ":lock:" + JobModulePrefix + ":%d"
)
