package callback

import (
	"sync"

	einocallbacks "github.com/cloudwego/eino/callbacks"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
)

var initOnce sync.Once

// Init 注册 Eino 全局 callbacks（进程级一次）：分镜规划的 ChatModel 与关键短语 embedder
func Init() {
	initOnce.Do(func() {
		handler := cbtemplate.NewHandlerHelper().
			ChatModel(newChatModelHandler()).
			Embedding(newEmbeddingHandler()).
			Handler()
		einocallbacks.AppendGlobalHandlers(handler)
	})
}
