/*
 * Copyright 2024 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/engine"
	"github.com/rulego/flowgraph/test"
)

func childAsset() *types.FlowAssetDef {
	def := test.Asset("child",
		test.Nodes(
			test.Node("start", "start", nil),
			test.Node("d1", "delay", types.Configuration{"periodInSeconds": 1}),
			test.Node("hurry", "customInput", types.Configuration{"eventName": "Hurry"}),
			test.Node("out", "customOutput", types.Configuration{"eventName": "Halfway"}),
			test.Node("end", "finish", nil),
		),
		test.Connect("start", "Out", "d1", "In"),
		test.Connect("start", "Out", "out", "In"),
		test.Connect("hurry", "Out", "d1", "Skip"),
		test.Connect("d1", "Completed", "end", "In"),
		test.Connect("d1", "Skipped", "end", "In"),
	)
	def.Asset.CustomInputs = []string{"Hurry"}
	def.Asset.CustomOutputs = []string{"Halfway"}
	return def
}

func parentAsset(id string, subConfig types.Configuration, extra ...types.Connection) *types.FlowAssetDef {
	connections := append([]types.Connection{
		test.Connect("start", "Out", "sg", "Start"),
		test.Connect("sg", "Halfway", "l1", "In"),
		test.Connect("sg", "Finish", "end", "In"),
	}, extra...)
	return test.Asset(id,
		test.Nodes(
			test.Node("start", "start", nil),
			test.Node("sg", "subGraph", subConfig),
			test.Node("l1", "log", types.Configuration{"message": "halfway", "verbosity": "log"}),
			test.Node("end", "finish", nil),
		),
		connections...,
	)
}

func subFlowOf(t *testing.T, f *test.Flow, root *engine.FlowInstance) (*engine.FlowInstance, bool) {
	t.Helper()
	sg, ok := root.Node("sg")
	require.True(t, ok)
	sub, ok := f.Subsystem.SubFlow(sg)
	if !ok {
		return nil, false
	}
	return sub.(*engine.FlowInstance), true
}

func TestStartFinish(t *testing.T) {
	def := test.Asset("main",
		test.Nodes(
			test.Node("start", "start", nil),
			test.Node("l1", "log", types.Configuration{"message": "hello"}),
			test.Node("end", "finish", nil),
		),
		test.Connect("start", "Out", "l1", "In"),
		test.Connect("l1", "Out", "end", "In"),
	)
	f := test.NewFlow(t, def)
	f.Start(t, "owner", "main")

	assert.Equal(t, []string{"start.Out", "l1.Out"}, f.Debug.Outputs())
	assert.Equal(t, []string{"start.In", "l1.In", "end.In"}, f.Debug.Inputs())
	_, ok := f.Subsystem.RootFlow("owner")
	assert.False(t, ok)
	assert.Len(t, f.Subsystem.Instances(), 0)
}

func TestSubGraph(t *testing.T) {
	f := test.NewFlow(t, childAsset(), parentAsset("parent", types.Configuration{"asset": "child"}))
	root := f.Start(t, "owner", "parent")

	sub, ok := subFlowOf(t, f, root)
	require.True(t, ok)
	assert.Equal(t, "child", sub.AssetId())
	parentInstance, parentNode := sub.Parent()
	assert.Equal(t, root.Id(), parentInstance)
	assert.Equal(t, "sg", parentNode)
	//子流程的自定义输出触发父节点同名端口
	assert.Equal(t, 1, f.Debug.Count("sg", "Halfway"))
	assert.Equal(t, 1, f.Debug.Count("l1", "Out"))

	f.Tick(0.5)
	assert.False(t, root.IsFinished())
	f.Tick(0.6)
	assert.True(t, root.IsFinished())
	assert.Equal(t, 1, f.Debug.Count("sg", "Finish"))
	_, ok = f.Subsystem.RootFlow("owner")
	assert.False(t, ok)
	assert.Len(t, f.Subsystem.Instances(), 0)
	assert.Equal(t, 0, f.Timers.Pending())
}

func TestSubGraphCustomInput(t *testing.T) {
	parent := parentAsset("parent", types.Configuration{"asset": "child"}, test.Connect("start", "Out", "sg", "Hurry"))
	f := test.NewFlow(t, childAsset(), parent)
	root := f.Start(t, "owner", "parent")

	assert.True(t, root.IsFinished())
	assert.Equal(t, 1, f.Debug.Count("d1", "Skipped"))
	assert.Equal(t, 0, f.Debug.Count("d1", "Completed"))
	assert.Equal(t, 1, f.Debug.Count("sg", "Finish"))
	assert.Equal(t, 0, f.Timers.Pending())
}

func TestSubGraphSelfReference(t *testing.T) {
	def := parentAsset("loop", types.Configuration{"asset": "loop"})
	f := test.NewFlowUnchecked(t, def)
	err := f.Subsystem.Validate(def)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "cannot be instanced")

	root := f.Start(t, "owner", "loop")
	_, ok := subFlowOf(t, f, root)
	assert.False(t, ok)
	assert.Len(t, f.Subsystem.Instances(), 1)
	require.Len(t, f.Debug.Errors(), 1)
	assert.Equal(t, "Asset loop cannot be instance, probably is the same as the asset owning this SubGraph node.", f.Debug.Errors()[0])
	sg, _ := root.Node("sg")
	assert.Equal(t, types.Completed, sg.State())
	assert.Equal(t, 0, f.Debug.Count("sg", "Finish"))

	t.Run("allowIdentical", func(t *testing.T) {
		def := test.Asset("loop2",
			test.Nodes(
				test.Node("start", "start", nil),
				test.Node("sg", "subGraph", types.Configuration{"asset": "loop2", "canInstanceIdenticalAsset": true}),
			),
			test.Connect("start", "Out", "sg", "Start"),
		)
		f := test.NewFlowUnchecked(t, def)
		assert.Nil(t, f.Subsystem.Validate(def))
	})
	t.Run("missingAsset", func(t *testing.T) {
		def := parentAsset("empty", types.Configuration{})
		f := test.NewFlowUnchecked(t, def)
		assert.NotNil(t, f.Subsystem.Validate(def))
		f.Start(t, "owner", "empty")
		assert.Equal(t, []string{"Missing Flow Asset"}, f.Debug.Errors())
	})
}

func TestSubGraphPreload(t *testing.T) {
	def := test.Asset("pre",
		test.Nodes(
			test.Node("start", "start", nil),
			test.Node("sg", "subGraph", types.Configuration{"asset": "child", "preload": true}),
		),
	)
	f := test.NewFlow(t, childAsset(), def)
	root := f.Start(t, "owner", "pre")

	sub, ok := subFlowOf(t, f, root)
	require.True(t, ok)
	assert.False(t, sub.IsStarted())
	sg, _ := root.Node("sg")
	assert.Equal(t, types.NeverActivated, sg.State())

	root.FlushContent()
	_, ok = subFlowOf(t, f, root)
	assert.False(t, ok)
	assert.Len(t, f.Subsystem.Instances(), 1)
}

func TestSubGraphSaveLoad(t *testing.T) {
	f := test.NewFlow(t, childAsset(), parentAsset("parent", types.Configuration{"asset": "child"}))
	root := f.Start(t, "owner", "parent")
	sub, _ := subFlowOf(t, f, root)
	f.Tick(0.4)

	game, err := f.Subsystem.SaveGame("slot1")
	require.Nil(t, err)
	require.Len(t, game.Instances, 2)
	assert.Equal(t, root.Id(), game.Instances[0].InstanceName)
	assert.Equal(t, sub.Id(), game.Instances[1].InstanceName)
	assert.Equal(t, root.Id(), game.Instances[1].ParentInstance)
	assert.Equal(t, "sg", game.Instances[1].ParentNode)
	sgRecord, ok := game.Instances[0].Node("sg")
	require.True(t, ok)
	assert.Equal(t, types.Active, sgRecord.State)
	assert.Equal(t, sub.Id(), sgRecord.Payload["savedAssetInstanceName"])
	f.Subsystem.Shutdown()
	assert.Len(t, f.Subsystem.Instances(), 0)

	f2 := test.NewFlow(t, childAsset(), parentAsset("parent", types.Configuration{"asset": "child"}))
	require.Nil(t, f2.Subsystem.LoadGame(game))
	loaded, ok := f2.Subsystem.RootFlow("owner")
	require.True(t, ok)
	assert.Equal(t, root.Id(), loaded.Id())
	loadedSub, ok := subFlowOf(t, f2, loaded)
	require.True(t, ok)
	assert.Equal(t, sub.Id(), loadedSub.Id())
	d1, _ := loadedSub.Node("d1")
	assert.Equal(t, types.Active, d1.State())

	f2.Tick(0.5)
	assert.False(t, loaded.IsFinished())
	f2.Tick(0.2)
	assert.True(t, loaded.IsFinished())
	assert.Equal(t, 1, f2.Debug.Count("d1", "Completed"))
	assert.Equal(t, 1, f2.Debug.Count("sg", "Finish"))
}

func TestSubGraphAbortDropsChildRecord(t *testing.T) {
	f := test.NewFlow(t, childAsset(), parentAsset("parent", types.Configuration{"asset": "child"}))
	root := f.Start(t, "owner", "parent")
	sub, ok := subFlowOf(t, f, root)
	require.True(t, ok)
	game, err := f.Subsystem.SaveGame("slot1")
	require.Nil(t, err)
	require.Len(t, game.Instances, 2)
	f.Subsystem.Shutdown()

	f2 := test.NewFlow(t, childAsset(), parentAsset("parent", types.Configuration{"asset": "child"}))
	require.Nil(t, f2.Subsystem.LoadGame(game))
	loaded, ok := f2.Subsystem.RootFlow("owner")
	require.True(t, ok)
	loadedSub, ok := subFlowOf(t, f2, loaded)
	require.True(t, ok)

	require.Nil(t, f2.Subsystem.FinishRootFlow("owner", types.FinishPolicyAbort))
	assert.Equal(t, types.FinishPolicyAbort, loaded.FinishPolicy())
	assert.Equal(t, types.FinishPolicyAbort, loadedSub.FinishPolicy())
	_, ok = f2.Subsystem.LoadedSaveGame().Instance(root.Id())
	assert.False(t, ok)
	_, ok = f2.Subsystem.LoadedSaveGame().Instance(sub.Id())
	assert.False(t, ok)
	assert.Len(t, f2.Subsystem.Instances(), 0)
	assert.Equal(t, 0, f2.Timers.Pending())
}

func TestSubGraphKeepsChildRecord(t *testing.T) {
	f := test.NewFlow(t, childAsset(), parentAsset("parent", types.Configuration{"asset": "child"}))
	root := f.Start(t, "owner", "parent")
	sub, _ := subFlowOf(t, f, root)
	game, err := f.Subsystem.SaveGame("slot1")
	require.Nil(t, err)
	f.Subsystem.Shutdown()

	f2 := test.NewFlow(t, childAsset(), parentAsset("parent", types.Configuration{"asset": "child"}))
	require.Nil(t, f2.Subsystem.LoadGame(game))
	require.Nil(t, f2.Subsystem.FinishRootFlow("owner", types.FinishPolicyKeep))
	_, ok := f2.Subsystem.LoadedSaveGame().Instance(sub.Id())
	assert.True(t, ok)
}
