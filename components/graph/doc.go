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

// Package graph provides the nodes that shape a flow graph and nest graphs into each other.
//
// - StartNode: entry point executed when an instance starts
// - FinishNode: completing it finishes the owning instance
// - CustomInputNode: named entry point triggered by a parent sub graph node or the owning component
// - CustomOutputNode: named exit point forwarded to a parent sub graph node or the owning component
// - SubGraphNode: runs another flow asset as a child instance
//
// Example:
//
//	{
//	  "id": "node1",
//	  "type": "subGraph",
//	  "name": "side quest",
//	  "configuration": {
//	    "asset": "side_quest_01"
//	  }
//	}
package graph
