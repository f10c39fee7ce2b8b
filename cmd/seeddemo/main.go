// Command seeddemo fills the conversation log and memory index with a few
// days of demo exchanges so the dashboard has something to show.
package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/yukesong/xiaoya/internal/config"
	"github.com/yukesong/xiaoya/internal/history"
	"github.com/yukesong/xiaoya/internal/memoryindex"
)

type demoTurn struct {
	user string
	ai   string
}

var demoConversations = []demoTurn{
	{"小雅啊，今天天气真好！", "是啊奶奶！阳光明媚的，您今天出去散步了吗？"},
	{"出去了，在公园走了一圈。", "那真好！您最喜欢公园的哪里呀？"},
	{"我喜欢那个小亭子，可以看荷花。", "听起来很美呢！您年轻的时候也喜欢看荷花吗？"},
	{"对啊，以前和你爷爷经常去西湖看荷花。", "哇，一定很浪漫！您和爷爷是怎么认识的呀？"},
	{"我们是在工厂认识的，那时候我18岁。", "18岁啊，青春年少！您那时候在工厂做什么工作呀？"},
	{"我是纺织女工，你爷爷是机修工。", "听起来挺辛苦的。您今天吃饭了吗？"},
	{"吃了，我做了红烧肉。", "哇！您的红烧肉一定很好吃！是怎么做的呀？"},
	{"先用糖色炒，然后加酱油、料酒，小火慢炖一个小时。", "听起来好香啊！您做饭这么拿手，一定常给家里人做好吃的吧？"},
	{"是啊，你爸爸小时候最爱吃我做的红烧肉。", "我爸也跟我说过呢！您最近睡眠怎么样？"},
	{"还行，就是有时候晚上会醒。", "那要注意休息呀。您昨天晚上睡得好吗？"},
	{"昨天睡得不错，睡了7个小时。", "那就好！规律作息很重要。您平时几点睡觉呀？"},
	{"一般9点半就上床了。", "挺好的作息！对了，您上次提到的红烧肉，糖色是怎么炒的来着？"},
	{"用冰糖小火慢慢炒，炒到冒泡变成焦糖色。", "学到了！您的厨艺真好。今天星期几来着？"},
	{"今天星期三吧。", "对的！您记性真好。您今天还有什么安排吗？"},
	{"下午想看会儿电视，有个戏曲节目。", "您喜欢看戏曲啊！最喜欢哪种戏呀？"},
	{"我喜欢越剧，特别是《红楼梦》。", "《红楼梦》很经典！您最喜欢里面的哪个人物？"},
	{"我喜欢林黛玉，她很有才华。", "确实！您年轻时也很有文化吧？"},
	{"还行，我读过高中，那时候不容易。", "那真的很了不起！您记得您是哪一年毕业的吗？"},
	{"1965年毕业的，然后就进工厂了。", "那您今年应该快80岁了吧？"},
	{"是啊，今年78了。", "身体还这么硬朗，真好！您有什么养生秘诀吗？"},
}

type demoInsight struct {
	category string
	text     string
}

var demoInsights = []demoInsight{
	{"爱好", "老人喜欢看荷花、喜欢越剧《红楼梦》、喜欢林黛玉"},
	{"饮食", "老人擅长做红烧肉，用糖色炒、小火慢炖，儿子小时候爱吃"},
	{"家庭", "老人和老伴在工厂认识，18岁时是纺织女工，老伴是机修工"},
	{"回忆", "年轻时常和老伴去西湖看荷花，很浪漫"},
	{"作息", "晚上9点半睡觉，有时会醒，昨天睡了7小时"},
	{"教育", "1965年高中毕业后进工厂，那时候读高中很不容易"},
	{"认知", "记忆力良好，能记住做菜细节，能准确回忆时间（1965年毕业）"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatalf("seeding needs DATABASE_URL: an in-memory store vanishes with this process")
	}

	ctx := context.Background()
	store, err := history.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("history store init failed: %v", err)
	}
	defer store.Close()

	var embedder memoryindex.Embedder
	if cfg.SiliconFlowAPIKey != "" {
		embedder, err = memoryindex.NewSiliconFlowEmbedder(memoryindex.EmbedderConfig{
			APIKey:  cfg.SiliconFlowAPIKey,
			BaseURL: cfg.SiliconFlowBaseURL,
			Model:   cfg.SiliconFlowEmbedModel,
			Dim:     cfg.MemoryEmbeddingDim,
		})
		if err != nil {
			log.Fatalf("embedder init failed: %v", err)
		}
	} else {
		embedder = memoryindex.NewHashEmbedder(cfg.MemoryEmbeddingDim)
		log.Printf("embeddings: hash stand-in (SILICONFLOW_API_KEY not set)")
	}

	index, err := memoryindex.NewIndex(ctx, cfg.DatabaseURL, embedder)
	if err != nil {
		log.Fatalf("memory index init failed: %v", err)
	}
	defer index.Close()

	// Spread the exchanges over the last three days so the dashboard has a
	// believable timeline.
	baseTime := time.Now().UTC().Add(-3 * 24 * time.Hour)
	for i, conv := range demoConversations {
		createdAt := baseTime.Add(time.Duration(i)*2*time.Hour + time.Duration(i)*15*time.Minute)
		turn := history.Turn{
			ID:        uuid.NewString(),
			SessionID: cfg.SessionID,
			UserText:  conv.user,
			AIText:    conv.ai,
			CreatedAt: createdAt,
		}
		if err := store.Append(ctx, turn); err != nil {
			log.Fatalf("append turn %d: %v", i+1, err)
		}

		rec := memoryindex.Record{
			ID:   "demo_" + uuid.NewString()[:8],
			Text: "用户: " + conv.user + "\nAI: " + conv.ai,
			Kind: memoryindex.KindConversation,
			Metadata: map[string]string{
				"session_id": cfg.SessionID,
				"timestamp":  createdAt.Format(time.RFC3339),
			},
		}
		if err := index.Upsert(ctx, rec); err != nil {
			log.Fatalf("index turn %d: %v", i+1, err)
		}
		log.Printf("conversation %d/%d", i+1, len(demoConversations))
	}

	for i, insight := range demoInsights {
		rec := memoryindex.Record{
			ID:   "insight_" + uuid.NewString()[:8],
			Text: insight.text,
			Kind: memoryindex.KindInsight,
			Metadata: map[string]string{
				"session_id": cfg.SessionID,
				"category":   insight.category,
			},
		}
		if err := index.Upsert(ctx, rec); err != nil {
			log.Fatalf("index insight %d: %v", i+1, err)
		}
		log.Printf("insight %d/%d: %s", i+1, len(demoInsights), insight.category)
	}

	log.Printf("seeded %d conversations and %d insights for session %s",
		len(demoConversations), len(demoInsights), cfg.SessionID)
}
