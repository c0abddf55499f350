package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/growmesh/growmesh/core"
	"github.com/growmesh/growmesh/platform"
	"github.com/growmesh/growmesh/provider"
)

// Cache TTL categories used by quota-bound operations. Agents override the
// durations through Config.CacheTTLs; the defaults follow the observed
// upstream quotas: performance analytics go stale in minutes, keyword
// research stays useful for a day.
const (
	CacheCategoryAnalytics = "analytics"
	CacheCategoryKeywords  = "keyword_research"

	defaultAnalyticsTTL = 30 * time.Minute
	defaultKeywordsTTL  = 24 * time.Hour
)

// NewSpecialist constructs a leaf-tier runtime from a role-specific
// operation set.
func NewSpecialist(cfg core.Config, ops map[core.TaskType]HandlerSpec, optFns ...func(o *Options)) (*Runtime, error) {
	if cfg.Role.Tier() != core.TierSpecialist {
		return nil, fmt.Errorf("agent %s: role %q is not a specialist role", cfg.AgentID, cfg.Role)
	}
	registry := NewRegistry()
	for taskType, spec := range ops {
		registry.Register(taskType, spec)
	}
	return NewRuntime(cfg, registry, optFns...), nil
}

// generateText runs one provider call with the agent's sampling settings and
// shapes the standard text-operation output.
func generateText(ctx context.Context, p provider.Provider, cfg core.Config, prompt string) (map[string]any, error) {
	resp, err := p.Generate(ctx, provider.Request{
		Prompt:      prompt,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"text":        resp.Text,
		"model":       resp.Model,
		"tokens_used": resp.TokensUsed,
	}, nil
}

// promptOp builds a HandlerSpec for a pure text-generation operation.
func promptOp(p provider.Provider, cfg core.Config, required []string, buildPrompt func(task core.Task) string) HandlerSpec {
	return HandlerSpec{
		Required: required,
		Handler: func(ctx context.Context, task core.Task) (map[string]any, error) {
			return generateText(ctx, p, cfg, buildPrompt(task))
		},
	}
}

// cachedOp builds a HandlerSpec whose fetch is routed through the cache
// layer with the agent's TTL for the category. Without a cache the fetch
// runs directly; the operation still works, it just stops absorbing quota.
func cachedOp(cache core.Cache, cfg core.Config, category string, defaultTTL time.Duration, required []string, keyFn func(task core.Task) string, fetch func(ctx context.Context, task core.Task) (any, error)) HandlerSpec {
	return HandlerSpec{
		Required: required,
		Handler: func(ctx context.Context, task core.Task) (map[string]any, error) {
			if cache == nil {
				value, err := fetch(ctx, task)
				if err != nil {
					return nil, err
				}
				return map[string]any{category: value, "cached": false, "stale": false}, nil
			}
			ttl := cfg.CacheTTL(category, defaultTTL)
			value, lookup, err := cache.GetOrFetch(ctx, keyFn(task), ttl, func(ctx context.Context) (any, error) {
				return fetch(ctx, task)
			})
			if err != nil {
				return nil, err
			}
			out := map[string]any{category: value, "cached": lookup.Cached, "stale": lookup.Stale}
			if lookup.Stale {
				out["warning"] = "served from stale cache after upstream failure"
			}
			return out, nil
		},
	}
}

// ContentWriterOps is the content writer's fixed operation set.
func ContentWriterOps(cfg core.Config, p provider.Provider) map[core.TaskType]HandlerSpec {
	return map[core.TaskType]HandlerSpec{
		"write_blog_post": promptOp(p, cfg, []string{"topic"}, func(t core.Task) string {
			return fmt.Sprintf("Write a blog post about %s.", t.StringParam("topic"))
		}),
		"write_social_post": promptOp(p, cfg, []string{"topic", "channel"}, func(t core.Task) string {
			return fmt.Sprintf("Write a %s post about %s.", t.StringParam("channel"), t.StringParam("topic"))
		}),
		"write_email_copy": promptOp(p, cfg, []string{"subject"}, func(t core.Task) string {
			return fmt.Sprintf("Write marketing email copy for the subject %q.", t.StringParam("subject"))
		}),
		"rewrite_content": promptOp(p, cfg, []string{"content"}, func(t core.Task) string {
			return fmt.Sprintf("Rewrite the following content:\n%s", t.StringParam("content"))
		}),
		"summarize_content": promptOp(p, cfg, []string{"content"}, func(t core.Task) string {
			return fmt.Sprintf("Summarize the following content:\n%s", t.StringParam("content"))
		}),
		"generate_headline": promptOp(p, cfg, []string{"topic"}, func(t core.Task) string {
			return fmt.Sprintf("Generate a headline about %s.", t.StringParam("topic"))
		}),
		"expand_outline": promptOp(p, cfg, []string{"outline"}, func(t core.Task) string {
			return fmt.Sprintf("Expand this outline into full prose:\n%s", t.StringParam("outline"))
		}),
		"proofread_content": promptOp(p, cfg, []string{"content"}, func(t core.Task) string {
			return fmt.Sprintf("Proofread and correct the following content:\n%s", t.StringParam("content"))
		}),
	}
}

// SEOSpecialistOps is the SEO specialist's fixed operation set. Keyword
// lookups run through the cache with the long research TTL.
func SEOSpecialistOps(cfg core.Config, p provider.Provider, analytics platform.AnalyticsClient, cache core.Cache) map[core.TaskType]HandlerSpec {
	return map[core.TaskType]HandlerSpec{
		"analyze_keywords": cachedOp(cache, cfg, CacheCategoryKeywords, defaultKeywordsTTL,
			[]string{"domain"},
			func(t core.Task) string { return "keywords:" + t.StringParam("domain") },
			func(ctx context.Context, t core.Task) (any, error) {
				return analytics.TopKeywords(ctx, t.StringParam("domain"), 20)
			}),
		"keyword_research": cachedOp(cache, cfg, CacheCategoryKeywords, defaultKeywordsTTL,
			[]string{"topic"},
			func(t core.Task) string { return "research:" + t.StringParam("topic") },
			func(ctx context.Context, t core.Task) (any, error) {
				out, err := generateText(ctx, p, cfg, fmt.Sprintf("List search keywords for the topic %q.", t.StringParam("topic")))
				if err != nil {
					return nil, err
				}
				return out["text"], nil
			}),
		"audit_page": promptOp(p, cfg, []string{"url"}, func(t core.Task) string {
			return fmt.Sprintf("Audit the on-page SEO of %s.", t.StringParam("url"))
		}),
		"compare_competitors": promptOp(p, cfg, []string{"domain", "competitor"}, func(t core.Task) string {
			return fmt.Sprintf("Compare SEO positioning of %s against %s.", t.StringParam("domain"), t.StringParam("competitor"))
		}),
		"suggest_meta_tags": promptOp(p, cfg, []string{"content"}, func(t core.Task) string {
			return fmt.Sprintf("Suggest meta tags for the following page content:\n%s", t.StringParam("content"))
		}),
		"optimize_content": promptOp(p, cfg, []string{"content", "keywords"}, func(t core.Task) string {
			return fmt.Sprintf("Optimize this content for the keywords %v:\n%s", t.Params["keywords"], t.StringParam("content"))
		}),
		"internal_link_plan": promptOp(p, cfg, []string{"domain"}, func(t core.Task) string {
			return fmt.Sprintf("Propose an internal linking plan for %s.", t.StringParam("domain"))
		}),
		"rank_report": cachedOp(cache, cfg, CacheCategoryKeywords, defaultKeywordsTTL,
			[]string{"domain"},
			func(t core.Task) string { return "rank:" + t.StringParam("domain") },
			func(ctx context.Context, t core.Task) (any, error) {
				return analytics.TopKeywords(ctx, t.StringParam("domain"), 50)
			}),
	}
}

// EmailSpecialistOps is the email specialist's fixed operation set.
func EmailSpecialistOps(cfg core.Config, p provider.Provider, email platform.EmailClient, cache core.Cache) map[core.TaskType]HandlerSpec {
	return map[core.TaskType]HandlerSpec{
		"send_campaign": {
			Required: []string{"subject", "body", "segment"},
			Handler: func(ctx context.Context, task core.Task) (map[string]any, error) {
				id, err := email.SendCampaign(ctx, task.StringParam("subject"), task.StringParam("body"), task.StringParam("segment"))
				if err != nil {
					return nil, err
				}
				return map[string]any{"campaign_id": id, "segment": task.StringParam("segment")}, nil
			},
		},
		"campaign_stats": cachedOp(cache, cfg, CacheCategoryAnalytics, defaultAnalyticsTTL,
			[]string{"campaign_id"},
			func(t core.Task) string { return "campaign:" + t.StringParam("campaign_id") },
			func(ctx context.Context, t core.Task) (any, error) {
				return email.ListStats(ctx, t.StringParam("campaign_id"))
			}),
		"draft_campaign": promptOp(p, cfg, []string{"topic"}, func(t core.Task) string {
			return fmt.Sprintf("Draft an email campaign about %s.", t.StringParam("topic"))
		}),
		"write_subject_lines": promptOp(p, cfg, []string{"topic"}, func(t core.Task) string {
			return fmt.Sprintf("Write five subject lines for an email about %s.", t.StringParam("topic"))
		}),
		"plan_sequence": promptOp(p, cfg, []string{"goal"}, func(t core.Task) string {
			return fmt.Sprintf("Plan a drip email sequence for the goal: %s.", t.StringParam("goal"))
		}),
		"segment_audience": promptOp(p, cfg, []string{"criteria"}, func(t core.Task) string {
			return fmt.Sprintf("Propose audience segments using the criteria: %s.", t.StringParam("criteria"))
		}),
		"ab_test_plan": promptOp(p, cfg, []string{"subject"}, func(t core.Task) string {
			return fmt.Sprintf("Design an A/B test for the subject line %q.", t.StringParam("subject"))
		}),
		"preview_text": promptOp(p, cfg, []string{"body"}, func(t core.Task) string {
			return fmt.Sprintf("Write preview text for this email body:\n%s", t.StringParam("body"))
		}),
	}
}

// SocialPosterOps is the social poster's fixed operation set.
func SocialPosterOps(cfg core.Config, p provider.Provider, social platform.SocialClient) map[core.TaskType]HandlerSpec {
	return map[core.TaskType]HandlerSpec{
		"publish_post": {
			Required: []string{"content"},
			Handler: func(ctx context.Context, task core.Task) (map[string]any, error) {
				id, err := social.PublishPost(ctx, task.StringParam("content"), time.Now().UTC())
				if err != nil {
					return nil, err
				}
				return map[string]any{"post_id": id}, nil
			},
		},
		"schedule_post": {
			Required: []string{"content", "publish_at"},
			Handler: func(ctx context.Context, task core.Task) (map[string]any, error) {
				at, err := time.Parse(time.RFC3339, task.StringParam("publish_at"))
				if err != nil {
					return nil, fmt.Errorf("invalid publish_at: %w", err)
				}
				id, err := social.PublishPost(ctx, task.StringParam("content"), at)
				if err != nil {
					return nil, err
				}
				return map[string]any{"post_id": id, "publish_at": at.Format(time.RFC3339)}, nil
			},
		},
		"list_scheduled": {
			Handler: func(ctx context.Context, task core.Task) (map[string]any, error) {
				posts, err := social.ScheduledPosts(ctx)
				if err != nil {
					return nil, err
				}
				return map[string]any{"posts": posts, "count": len(posts)}, nil
			},
		},
		"draft_post": promptOp(p, cfg, []string{"topic"}, func(t core.Task) string {
			return fmt.Sprintf("Draft a social post about %s.", t.StringParam("topic"))
		}),
		"hashtag_suggestions": promptOp(p, cfg, []string{"topic"}, func(t core.Task) string {
			return fmt.Sprintf("Suggest hashtags for a post about %s.", t.StringParam("topic"))
		}),
		"engagement_reply": promptOp(p, cfg, []string{"comment"}, func(t core.Task) string {
			return fmt.Sprintf("Write a friendly reply to this comment: %s", t.StringParam("comment"))
		}),
		"content_calendar": promptOp(p, cfg, []string{"week"}, func(t core.Task) string {
			return fmt.Sprintf("Plan a posting calendar for week %s.", t.StringParam("week"))
		}),
		"repurpose_content": promptOp(p, cfg, []string{"content"}, func(t core.Task) string {
			return fmt.Sprintf("Repurpose this content into short social posts:\n%s", t.StringParam("content"))
		}),
	}
}

// AnalyticsReporterOps is the analytics reporter's fixed operation set. The
// metric fetches run through the cache with the short analytics TTL so a
// rate-limited backend degrades to slightly stale numbers, not errors.
func AnalyticsReporterOps(cfg core.Config, p provider.Provider, analytics platform.AnalyticsClient, cache core.Cache) map[core.TaskType]HandlerSpec {
	metricsKey := func(t core.Task) string { return "metrics:" + t.StringParam("channel") }
	fetchMetrics := func(ctx context.Context, t core.Task) (any, error) {
		return analytics.FetchMetrics(ctx, t.StringParam("channel"), time.Now().UTC().Add(-7*24*time.Hour))
	}

	return map[core.TaskType]HandlerSpec{
		"fetch_metrics": cachedOp(cache, cfg, CacheCategoryAnalytics, defaultAnalyticsTTL,
			[]string{"channel"}, metricsKey, fetchMetrics),
		"traffic_summary": cachedOp(cache, cfg, CacheCategoryAnalytics, defaultAnalyticsTTL,
			[]string{"channel"}, metricsKey, fetchMetrics),
		"top_keywords": cachedOp(cache, cfg, CacheCategoryKeywords, defaultKeywordsTTL,
			[]string{"domain"},
			func(t core.Task) string { return "keywords:" + t.StringParam("domain") },
			func(ctx context.Context, t core.Task) (any, error) {
				return analytics.TopKeywords(ctx, t.StringParam("domain"), 20)
			}),
		"generate_report": {
			Required: []string{"channel"},
			Handler: func(ctx context.Context, task core.Task) (map[string]any, error) {
				metrics, err := analytics.FetchMetrics(ctx, task.StringParam("channel"), time.Now().UTC().Add(-7*24*time.Hour))
				if err != nil {
					return nil, err
				}
				narrative, err := generateText(ctx, p, cfg,
					fmt.Sprintf("Write a performance summary for channel %s from these metrics: %v", task.StringParam("channel"), metrics))
				if err != nil {
					return nil, err
				}
				return map[string]any{
					"channel": task.StringParam("channel"),
					"metrics": metrics,
					"summary": narrative["text"],
				}, nil
			},
		},
		"conversion_report": promptOp(p, cfg, []string{"channel"}, func(t core.Task) string {
			return fmt.Sprintf("Summarize conversion performance for channel %s.", t.StringParam("channel"))
		}),
		"trend_analysis": promptOp(p, cfg, []string{"channel"}, func(t core.Task) string {
			return fmt.Sprintf("Analyze traffic trends for channel %s.", t.StringParam("channel"))
		}),
		"weekly_digest": promptOp(p, cfg, nil, func(core.Task) string {
			return "Write the weekly cross-channel performance digest."
		}),
		"kpi_check": promptOp(p, cfg, []string{"channel", "metric"}, func(t core.Task) string {
			return fmt.Sprintf("Evaluate the KPI %s for channel %s.", t.StringParam("metric"), t.StringParam("channel"))
		}),
	}
}

// subtask derives a delegated task from the incoming one, preserving the
// parameter mapping and recording the delegating agent as origin.
func subtask(from string, taskType core.TaskType, role core.Role, params map[string]any) core.Task {
	return core.NewTask(taskType, role, from, params)
}

// ContentManagerOps builds the content manager's operation set: its own
// review work plus fan-out production pipelines over its specialists.
func ContentManagerOps(p provider.Provider) ManagerOpsBuilder {
	return func(m *Manager) map[core.TaskType]HandlerSpec {
		cfg := m.Config()
		return map[core.TaskType]HandlerSpec{
			"produce_article": {
				Required: []string{"topic"},
				Handler: func(ctx context.Context, task core.Task) (map[string]any, error) {
					agg := m.Dispatch(ctx, []Call{
						{Task: subtask(m.AgentID(), "write_blog_post", core.RoleContentWriter, task.Params), Required: true},
						{Task: subtask(m.AgentID(), "keyword_research", core.RoleSEOSpecialist, task.Params), Required: false},
					})
					if agg.Failed {
						return nil, core.NewExecutionError(m.AgentID(), task.ID, "article production failed",
							fmt.Errorf("%v", agg.Warnings))
					}
					return agg.Output(), nil
				},
			},
			"generate_report": {
				Handler: func(ctx context.Context, task core.Task) (map[string]any, error) {
					params := map[string]any{"content": "recent content output", "domain": task.StringParam("domain"), "topic": "content performance"}
					agg := m.Dispatch(ctx, []Call{
						{Task: subtask(m.AgentID(), "summarize_content", core.RoleContentWriter, params), Required: true},
						{Task: subtask(m.AgentID(), "analyze_keywords", core.RoleSEOSpecialist, params), Required: false},
					})
					if agg.Failed {
						return nil, core.NewExecutionError(m.AgentID(), task.ID, "content report failed",
							fmt.Errorf("%v", agg.Warnings))
					}
					return agg.Output(), nil
				},
			},
			"content_review": promptOp(p, cfg, []string{"content"}, func(t core.Task) string {
				return fmt.Sprintf("Review this content for brand fit and quality:\n%s", t.StringParam("content"))
			}),
		}
	}
}

// SocialManagerOps builds the social manager's operation set over the social
// poster and email specialist.
func SocialManagerOps(p provider.Provider) ManagerOpsBuilder {
	return func(m *Manager) map[core.TaskType]HandlerSpec {
		cfg := m.Config()
		return map[core.TaskType]HandlerSpec{
			"launch_post": {
				Required: []string{"content"},
				Handler: func(ctx context.Context, task core.Task) (map[string]any, error) {
					agg := m.Dispatch(ctx, []Call{
						{Task: subtask(m.AgentID(), "publish_post", core.RoleSocialPoster, task.Params), Required: true},
					})
					if agg.Failed {
						return nil, core.NewExecutionError(m.AgentID(), task.ID, "post launch failed",
							fmt.Errorf("%v", agg.Warnings))
					}
					return agg.Output(), nil
				},
			},
			"send_newsletter": {
				Required: []string{"subject", "body", "segment"},
				Handler: func(ctx context.Context, task core.Task) (map[string]any, error) {
					agg := m.Dispatch(ctx, []Call{
						{Task: subtask(m.AgentID(), "send_campaign", core.RoleEmailSpecialist, task.Params), Required: true},
					})
					if agg.Failed {
						return nil, core.NewExecutionError(m.AgentID(), task.ID, "newsletter send failed",
							fmt.Errorf("%v", agg.Warnings))
					}
					return agg.Output(), nil
				},
			},
			"generate_report": {
				Handler: func(ctx context.Context, task core.Task) (map[string]any, error) {
					agg := m.Dispatch(ctx, []Call{
						{Task: subtask(m.AgentID(), "list_scheduled", core.RoleSocialPoster, map[string]any{}), Required: true},
						{Task: subtask(m.AgentID(), "campaign_stats", core.RoleEmailSpecialist, map[string]any{"campaign_id": task.StringParam("campaign_id")}), Required: false},
					})
					if agg.Failed {
						return nil, core.NewExecutionError(m.AgentID(), task.ID, "social report failed",
							fmt.Errorf("%v", agg.Warnings))
					}
					return agg.Output(), nil
				},
			},
			"campaign_angle": promptOp(p, cfg, []string{"topic"}, func(t core.Task) string {
				return fmt.Sprintf("Propose a social campaign angle for %s.", t.StringParam("topic"))
			}),
		}
	}
}

// AnalyticsManagerOps builds the analytics manager's operation set over the
// analytics reporter.
func AnalyticsManagerOps(p provider.Provider) ManagerOpsBuilder {
	return func(m *Manager) map[core.TaskType]HandlerSpec {
		cfg := m.Config()
		return map[core.TaskType]HandlerSpec{
			"generate_report": {
				Required: []string{"channel"},
				Handler: func(ctx context.Context, task core.Task) (map[string]any, error) {
					agg := m.Dispatch(ctx, []Call{
						{Task: subtask(m.AgentID(), "generate_report", core.RoleAnalyticsReporter, task.Params), Required: true},
						{Task: subtask(m.AgentID(), "trend_analysis", core.RoleAnalyticsReporter, task.Params), Required: false},
					})
					if agg.Failed {
						return nil, core.NewExecutionError(m.AgentID(), task.ID, "analytics report failed",
							fmt.Errorf("%v", agg.Warnings))
					}
					return agg.Output(), nil
				},
			},
			"keyword_overview": {
				Required: []string{"domain"},
				Handler: func(ctx context.Context, task core.Task) (map[string]any, error) {
					agg := m.Dispatch(ctx, []Call{
						{Task: subtask(m.AgentID(), "top_keywords", core.RoleAnalyticsReporter, task.Params), Required: true},
					})
					if agg.Failed {
						return nil, core.NewExecutionError(m.AgentID(), task.ID, "keyword overview failed",
							fmt.Errorf("%v", agg.Warnings))
					}
					return agg.Output(), nil
				},
			},
			"metric_commentary": promptOp(p, cfg, []string{"metric"}, func(t core.Task) string {
				return fmt.Sprintf("Comment on movements in the metric %s.", t.StringParam("metric"))
			}),
		}
	}
}

// CoordinatorOps builds the coordinator's operation set: campaign-level
// pipelines fanning out across the managers, plus bus broadcasts.
func CoordinatorOps(p provider.Provider) CoordinatorOpsBuilder {
	return func(c *Coordinator) map[core.TaskType]HandlerSpec {
		cfg := c.Config()
		return map[core.TaskType]HandlerSpec{
			"run_campaign": {
				Required: []string{"topic", "content"},
				Handler: func(ctx context.Context, task core.Task) (map[string]any, error) {
					agg := c.Dispatch(ctx, []Call{
						{Task: subtask(c.AgentID(), "produce_article", core.RoleContentManager, task.Params), Required: true},
						{Task: subtask(c.AgentID(), "launch_post", core.RoleSocialManager, task.Params), Required: true},
						{Task: subtask(c.AgentID(), "generate_report", core.RoleAnalyticsManager, mergeParams(task.Params, "channel", "web")), Required: false},
					})
					if agg.Failed {
						return nil, core.NewExecutionError(c.AgentID(), task.ID, "campaign run failed",
							fmt.Errorf("%v", agg.Warnings))
					}
					return agg.Output(), nil
				},
			},
			"generate_campaign_report": {
				Handler: func(ctx context.Context, task core.Task) (map[string]any, error) {
					agg := c.Dispatch(ctx, []Call{
						{Task: subtask(c.AgentID(), "generate_report", core.RoleAnalyticsManager, mergeParams(task.Params, "channel", "web")), Required: true},
						{Task: subtask(c.AgentID(), "generate_report", core.RoleContentManager, task.Params), Required: false},
						{Task: subtask(c.AgentID(), "generate_report", core.RoleSocialManager, task.Params), Required: false},
					})
					if agg.Failed {
						return nil, core.NewExecutionError(c.AgentID(), task.ID, "campaign report failed",
							fmt.Errorf("%v", agg.Warnings))
					}
					return agg.Output(), nil
				},
			},
			"broadcast_update": {
				Required: []string{"update"},
				Handler: func(ctx context.Context, task core.Task) (map[string]any, error) {
					notified := 0
					for _, role := range c.Roles() {
						if sub, ok := c.pick(role); ok {
							if err := c.Notify(ctx, sub.AgentID(), map[string]any{"update": task.Params["update"]}); err != nil {
								return nil, err
							}
							notified++
						}
					}
					return map[string]any{"notified": notified}, nil
				},
			},
			"campaign_brief": promptOp(p, cfg, []string{"topic"}, func(t core.Task) string {
				return fmt.Sprintf("Write a campaign brief for %s.", t.StringParam("topic"))
			}),
		}
	}
}

// mergeParams copies params and sets one extra key when absent.
func mergeParams(params map[string]any, key string, def any) map[string]any {
	out := make(map[string]any, len(params)+1)
	for k, v := range params {
		out[k] = v
	}
	if _, ok := out[key]; !ok {
		out[key] = def
	}
	return out
}
