// Package harness runs scripted scenarios against a real platform.
//
// A scenario drives the platform dispatch loop with a fixed sequence of
// agent actions on a tick clock, then checks the resulting trace and
// database state. Runs are deterministic: correlation IDs come from a
// sequence generator, randomness from a seeded source, and every record is
// stamped with the tick the step names.
//
// # Scenario Format
//
//	name: like_lifecycle
//	description: "A like can be undone and redone once"
//	seed: 7
//	platform:
//	  allow_self_rating: false
//	setup:
//	  - agent: 1
//	    action: sign_up
//	    args: { user_name: alice, name: Alice, bio: "" }
//	flow:
//	  - agent: 2
//	    action: like_post
//	    args: { post_id: 1 }
//	    tick: 1440
//	    expect:
//	      case: success
//	      result: { like_id: 1 }
//	assertions:
//	  - type: trace_contains
//	    action: like_post
//	    agent: 2
//	    info: { post_id: 1 }
//	  - type: final_state
//	    table: post
//	    where: { post_id: 1 }
//	    expect: { num_likes: 1 }
//
// The platform section accepts the keys of a config file's platform
// section; omitted keys keep their defaults. Its clock keys are ignored.
//
// # Assertion Types
//
//   - trace_contains: an entry with the action, optional agent and a subset of info
//   - trace_order: first occurrences of the listed actions appear in order
//   - trace_count: the action appears exactly count times
//   - final_state: exactly one row of table matches where and carries expect
//
// # Golden Traces
//
// RunWithGolden compares the step results and trace against
// testdata/golden/<name>.golden. Regenerate with
//
//	go test ./internal/harness -update
package harness
