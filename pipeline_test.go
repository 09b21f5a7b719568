package flowgraph

import (
	"context"
	"testing"
)

func TestNewPipelineFromConfig(t *testing.T) {
	t.Run("nil config rejected", func(t *testing.T) {
		_, err := NewPipelineFromConfig(nil)
		if !isKind(err, KindNullPipelineConfig) {
			t.Fatalf("NewPipelineFromConfig(nil) = %v, want KindNullPipelineConfig", err)
		}
	})

	t.Run("edge defaults and per-connection overrides are honored", func(t *testing.T) {
		cfg := NewConfig("_pipeline")
		if err := cfg.Set("_pipeline:_edge:capacity", "4"); err != nil {
			t.Fatal(err)
		}
		if err := cfg.Set("_pipeline:_edge:src:out:sink:in:blocking", "false"); err != nil {
			t.Fatal(err)
		}
		p, err := NewPipelineFromConfig(cfg)
		if err != nil {
			t.Fatalf("NewPipelineFromConfig: %v", err)
		}

		mustAdd(t, p, "src", newStringSourceProcess("src", "a"))
		mustAdd(t, p, "sink", newTakeStringProcess("sink"))
		if err := p.Connect("src", "out", "sink", "in"); err != nil {
			t.Fatalf("Connect: %v", err)
		}
		setupOrFail(t, p)

		conn := Connection{UpProcess: "src", UpPort: "out", DownProcess: "sink", DownPort: "in"}
		edge, ok := p.EdgeForConnection(conn)
		if !ok {
			t.Fatal("edge not materialized")
		}
		if edge.Capacity() != 4 {
			t.Fatalf("Capacity() = %d, want configured default 4", edge.Capacity())
		}
		if edge.Blocking() {
			t.Fatal("Blocking() = true, want per-connection override false")
		}
	})
}

func TestPipelineEmptySetupRejected(t *testing.T) {
	p := NewPipeline()
	err := p.SetupPipeline(context.Background())
	if !isKind(err, KindNoProcesses) {
		t.Fatalf("SetupPipeline on empty pipeline = %v, want KindNoProcesses", err)
	}
}

func TestPipelineDuplicateSetupRejected(t *testing.T) {
	p := NewPipeline()
	mustAdd(t, p, "solo", newOrphanProcess("solo"))
	setupOrFail(t, p)

	err := p.SetupPipeline(context.Background())
	if !isKind(err, KindPipelineDuplicateSetup) {
		t.Fatalf("second SetupPipeline = %v, want KindPipelineDuplicateSetup", err)
	}
}

func TestPipelineTopologyFrozenAfterSetup(t *testing.T) {
	p := NewPipeline()
	mustAdd(t, p, "src", newStringSourceProcess("src", "a"))
	mustAdd(t, p, "sink", newTakeStringProcess("sink"))
	if err := p.Connect("src", "out", "sink", "in"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	setupOrFail(t, p)

	if err := p.AddProcess("late", newOrphanProcess("late"), nil); !isKind(err, KindAddAfterSetup) {
		t.Fatalf("AddProcess after setup = %v, want KindAddAfterSetup", err)
	}
	if err := p.RemoveProcess("src"); !isKind(err, KindRemoveAfterSetup) {
		t.Fatalf("RemoveProcess after setup = %v, want KindRemoveAfterSetup", err)
	}
	if err := p.Connect("src", "out", "sink", "in"); !isKind(err, KindConnectionAfterSetup) {
		t.Fatalf("Connect after setup = %v, want KindConnectionAfterSetup", err)
	}
	if err := p.Disconnect("src", "out", "sink", "in"); !isKind(err, KindDisconnectionAfterSetup) {
		t.Fatalf("Disconnect after setup = %v, want KindDisconnectionAfterSetup", err)
	}
}

func TestPipelineRemoveProcessDropsConnections(t *testing.T) {
	p := NewPipeline()
	mustAdd(t, p, "src", newStringSourceProcess("src", "a"))
	mustAdd(t, p, "sink", newTakeStringProcess("sink"))
	if err := p.Connect("src", "out", "sink", "in"); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := p.RemoveProcess("src"); err != nil {
		t.Fatalf("RemoveProcess: %v", err)
	}
	if conns := p.ConnectionsFromAddr("src", "out"); len(conns) != 0 {
		t.Fatalf("ConnectionsFromAddr after remove = %v, want none", conns)
	}
	if _, ok := p.ConnectionsToAddr("sink", "in"); ok {
		t.Fatal("ConnectionsToAddr after remove should report no connection")
	}
	if err := p.RemoveProcess("src"); !isKind(err, KindNoSuchProcess) {
		t.Fatalf("RemoveProcess twice = %v, want KindNoSuchProcess", err)
	}
}

func TestPipelineAddProcessSetsNameKey(t *testing.T) {
	p := NewPipeline()
	cfg := NewConfig("src")
	if err := p.AddProcess("src", newOrphanProcess("src"), cfg); err != nil {
		t.Fatalf("AddProcess: %v", err)
	}
	name, err := cfg.Get(NameKey)
	if err != nil || name != "src" {
		t.Fatalf("config %s = %q, %v, want src", NameKey, name, err)
	}
}

func TestPipelineReconfigure(t *testing.T) {
	t.Run("before setup rejected", func(t *testing.T) {
		p := NewPipeline()
		mustAdd(t, p, "solo", newOrphanProcess("solo"))
		if err := p.Reconfigure(NewConfig("update")); !isKind(err, KindReconfigureBeforeSetup) {
			t.Fatalf("Reconfigure before setup = %v, want KindReconfigureBeforeSetup", err)
		}
	})

	t.Run("delivers subblocks to top-level processes only", func(t *testing.T) {
		p := NewPipeline()
		plain := newReconfigureRecorderProcess("plain")
		child := newReconfigureRecorderProcess("child")

		mustAdd(t, p, "plain", plain)
		if err := p.AddCluster("clu", &recorderCluster{child: child}, nil); err != nil {
			t.Fatalf("AddCluster: %v", err)
		}
		if err := p.Connect("plain", "out", "clu", "in"); err != nil {
			t.Fatalf("Connect: %v", err)
		}
		setupOrFail(t, p)

		update := NewConfig("update")
		if err := update.Set("plain:new_key", "value"); err != nil {
			t.Fatal(err)
		}
		if err := update.Set("clu/child:new_key", "value"); err != nil {
			t.Fatal(err)
		}
		if err := p.Reconfigure(update); err != nil {
			t.Fatalf("Reconfigure: %v", err)
		}

		if !plain.reconfigured {
			t.Fatal("expected top-level process to receive its reconfigure subblock")
		}
		if child.reconfigured {
			t.Fatal("cluster children must not be reconfigured from the top")
		}
	})
}
