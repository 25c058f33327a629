// Package agentloop is a tool-calling agent runtime for Go.
//
// The engine drives a bounded conversation loop against a model
// backend: it loads the session, optionally compacts a long history
// into a summary, calls the model, dispatches any requested tool
// invocations sequentially, feeds the results back, and repeats until
// the model answers without tools or the iteration budget runs out.
// Tool failures are reported to the model so it can self-correct;
// backend failures propagate to the caller without corrupting the
// persisted history.
//
// # Quick Start
//
//	client := anthropic.NewClient()
//	engine, err := agentloop.New(
//	    agentloop.Config{
//	        Provider:     anthropicprovider.New(client),
//	        Store:        memory.New(),
//	        SystemPrompt: "You are a helpful assistant",
//	    },
//	    agentloop.WithTools(myTool),
//	    agentloop.WithMaxIterations(10),
//	)
//
//	out, err := engine.ProcessText(ctx, "terminal:1", "What's the weather in Tokyo?")
//	fmt.Println(out.Content)
//
// # Custom Tools
//
// Implement the tool.Tool interface, or wrap a function:
//
//	weather := tool.NewFuncTool(
//	    "get_weather",
//	    "Current weather for a city",
//	    tool.ObjectSchema(map[string]tool.PropertyDef{
//	        "city": {Type: "string", Description: "City name"},
//	    }, "city"),
//	    func(ctx context.Context, args json.RawMessage) (string, error) {
//	        var params struct{ City string `json:"city"` }
//	        if err := json.Unmarshal(args, &params); err != nil {
//	            return "", tool.Errorf("invalid arguments: %v", err)
//	        }
//	        return lookup(ctx, params.City)
//	    },
//	)
//
// Expected failures returned via tool.Errorf become "Tool error: ..."
// results the model sees; any other error aborts the run.
//
// # Compaction
//
// Long histories are summarized in place of their older prefix while
// keeping assistant tool calls paired with their results:
//
//	c, _ := compaction.New(provider, compaction.DefaultPolicy())
//	engine, _ := agentloop.New(cfg, agentloop.WithCompaction(c))
//
// # Persistence
//
// Sessions are stored through the store.Store interface. The memory
// package covers single-process use (optionally mirrored to JSON
// files); the postgres and sqlstore packages persist to PostgreSQL via
// pgx or database/sql.
package agentloop
