// Package docuquery embeds the docuquery question-answering pipeline in a Go
// program without running the HTTP server.
//
//	client, _ := docuquery.New(ctx,
//	    docuquery.WithOpenAI(os.Getenv("OPENAI_API_KEY"), ""),
//	    docuquery.WithStorageDir("data"),
//	)
//	defer client.Close(ctx)
//
//	doc, _ := client.Ingest(ctx, "handbook.md", text)
//	ans, _ := client.Query(ctx, "How many vacation days do I get?")
//	fmt.Println(ans.Text, ans.Confidence)
package docuquery
