package sites

import (
	"github.com/golang-chatmsg-core/internal/adapter"
)

// 专属适配器的注册顺序即匹配顺序，专属在前、通用（adapter 包内注册）兜底
func init() {
	adapter.Register("zm", MatchZM, func(env *adapter.Env) adapter.Adapter { return NewZM(env) })
	adapter.Register("qingwa", MatchQingwa, func(env *adapter.Env) adapter.Adapter { return NewQingwa(env) })
	adapter.Register("vicomo", MatchVicomo, func(env *adapter.Env) adapter.Adapter { return NewVicomo(env) })
	adapter.Register("hhanclub", MatchHhanclub, func(env *adapter.Env) adapter.Adapter { return NewHhanclub(env) })
	adapter.Register("eden", MatchEden, func(env *adapter.Env) adapter.Adapter { return NewEden(env) })
	adapter.Register("lingyin", MatchLingyin, func(env *adapter.Env) adapter.Adapter { return NewLingyin(env) })
}
