package model

// CallerContext 显式传入访问控制层的调用方身份，替代会话中的全局状态
type CallerContext struct {
	UserID       uint
	Role         UserRole
	Organization string
}

func (c CallerContext) IsAdmin() bool {
	return c.Role == Admin
}
