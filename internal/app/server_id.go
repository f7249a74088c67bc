package app

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// InstanceID 生成网关实例ID
// 优先使用环境变量AMP_INSTANCE_ID，否则生成 amp-gateway-{hostname}-{uuid前8位}
func InstanceID() string {
	if id := os.Getenv("AMP_INSTANCE_ID"); id != "" {
		return id
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	shortUUID := uuid.New().String()[:8]
	return fmt.Sprintf("amp-gateway-%s-%s", hostname, shortUUID)
}
